package scoring

import "math"

// scaler standardizes feature vectors to zero mean and unit variance per
// dimension. It must only be applied alongside the forest it was fit with.
type scaler struct {
	mean  []float64
	scale []float64
}

// fitScaler computes per-dimension mean and standard deviation over the
// sample matrix. Dimensions with zero variance get scale 1 so transforming
// them is a no-op shift.
func fitScaler(samples [][]float64, dims int) *scaler {
	s := &scaler{
		mean:  make([]float64, dims),
		scale: make([]float64, dims),
	}
	n := float64(len(samples))
	if n == 0 {
		for d := range s.scale {
			s.scale[d] = 1.0
		}
		return s
	}

	for _, sample := range samples {
		for d, v := range sample {
			s.mean[d] += v
		}
	}
	for d := range s.mean {
		s.mean[d] /= n
	}

	for _, sample := range samples {
		for d, v := range sample {
			diff := v - s.mean[d]
			s.scale[d] += diff * diff
		}
	}
	for d := range s.scale {
		s.scale[d] = math.Sqrt(s.scale[d] / n)
		if s.scale[d] == 0 {
			s.scale[d] = 1.0
		}
	}

	return s
}

// transform standardizes a single feature vector into a new slice.
func (s *scaler) transform(features []float64) []float64 {
	scaled := make([]float64, len(features))
	for d, v := range features {
		scaled[d] = (v - s.mean[d]) / s.scale[d]
	}
	return scaled
}

// transformAll standardizes a sample matrix.
func (s *scaler) transformAll(samples [][]float64) [][]float64 {
	scaled := make([][]float64, len(samples))
	for i, sample := range samples {
		scaled[i] = s.transform(sample)
	}
	return scaled
}
