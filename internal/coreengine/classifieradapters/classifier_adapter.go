package classifieradapters

// Classifier scores a preprocessed image tensor. The returned value is the
// model's raw probability of the robot class, in [0,1]; it is never the
// resolved confidence. Implementations must be safe for concurrent use by
// multiple predictions.
type Classifier interface {
	Score(input []float32) (float64, error)
	Close() error
}
