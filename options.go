package tzcall

import "time"

// EncoderOption configures an Encoder.
type EncoderOption func(*encoderConfig)

// BatchOption configures a Batch.
type BatchOption func(*batchConfig)

// encoderConfig holds configuration for the Encoder.
type encoderConfig struct {
	timeLayouts  []string
	checkAddress bool
	validateHex  bool
	location     *time.Location
}

// batchConfig holds configuration for a Batch.
type batchConfig struct {
	maxOperations int
}

// DefaultTimeLayouts are the calendar layouts tried for timestamp strings.
var DefaultTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
}

// defaultEncoderConfig returns the default encoder configuration.
func defaultEncoderConfig() *encoderConfig {
	return &encoderConfig{
		timeLayouts:  DefaultTimeLayouts,
		checkAddress: true,
		validateHex:  false,
		location:     time.UTC,
	}
}

// defaultBatchConfig returns the default batch configuration.
func defaultBatchConfig() *batchConfig {
	return &batchConfig{
		maxOperations: 256,
	}
}

// WithTimeLayouts replaces the layouts used to parse timestamp strings.
func WithTimeLayouts(layouts ...string) EncoderOption {
	return func(c *encoderConfig) {
		c.timeLayouts = append([]string(nil), layouts...)
	}
}

// WithLocation sets the zone for timestamp strings without an offset.
// Default is UTC.
func WithLocation(loc *time.Location) EncoderOption {
	return func(c *encoderConfig) {
		if loc != nil {
			c.location = loc
		}
	}
}

// WithoutAddressCheck disables the address prefix check.
func WithoutAddressCheck() EncoderOption {
	return func(c *encoderConfig) {
		c.checkAddress = false
	}
}

// WithHexValidation rejects bytes values that are not well-formed hex.
// By default bytes are passed through unchecked.
func WithHexValidation() EncoderOption {
	return func(c *encoderConfig) {
		c.validateHex = true
	}
}

// WithMaxOperations sets a maximum operation count for a batch.
// Default is 256 operations.
func WithMaxOperations(max int) BatchOption {
	return func(c *batchConfig) {
		if max > 0 {
			c.maxOperations = max
		}
	}
}
