package text

// Option configures Font creation.
type Option func(*fontConfig)

// fontConfig holds configuration for Font.
type fontConfig struct {
	parserName string
}

// defaultFontConfig returns the default font configuration.
func defaultFontConfig() fontConfig {
	return fontConfig{
		parserName: defaultParserName,
	}
}

// WithParser specifies the font parser backend.
// The default is "ximage" which uses golang.org/x/image/font/sfnt;
// "gotext" selects github.com/go-text/typesetting.
//
// Custom parsers can be registered with RegisterParser. Unknown names
// fall back to the default.
func WithParser(name string) Option {
	return func(c *fontConfig) {
		c.parserName = name
	}
}
