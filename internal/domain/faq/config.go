package faq

const (
	DefaultThreshold       = 0.5
	DefaultFallbackMessage = "I'm not sure I understand your question. Could you please rephrase?"
	DefaultErrorMessage    = "Sorry, I encountered an error processing your question."
)

// Config holds runtime knobs for the FAQ matcher.
type Config struct {
	// Threshold is the minimum score for a match. Nil selects DefaultThreshold;
	// use Threshold(0) to accept any non-negative score.
	Threshold       *float64
	FallbackMessage string
	ErrorMessage    string
}

// Threshold returns a pointer to v for Config.Threshold.
func Threshold(v float64) *float64 {
	return &v
}

func (c Config) withDefaults() Config {
	if c.Threshold == nil {
		c.Threshold = Threshold(DefaultThreshold)
	}
	if c.FallbackMessage == "" {
		c.FallbackMessage = DefaultFallbackMessage
	}
	if c.ErrorMessage == "" {
		c.ErrorMessage = DefaultErrorMessage
	}
	return c
}
