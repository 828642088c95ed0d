package director

// Plan is a batch of independent captures.
type Plan struct {
	Version string `yaml:"version"`
	Jobs    []Job  `yaml:"jobs"`
}

// Job describes one clip. Zero values fall back to the base config.
type Job struct {
	ID         int     `yaml:"id"`
	Input      string  `yaml:"input"`
	Output     string  `yaml:"output,omitempty"`
	Title      string  `yaml:"title,omitempty"`
	Duration   float64 `yaml:"duration,omitempty"` // seconds of drawing
	Hold       float64 `yaml:"hold,omitempty"`     // seconds at full reveal
	Background string  `yaml:"background,omitempty"`
	Easing     string  `yaml:"easing,omitempty"`
	Format     string  `yaml:"format,omitempty"`
}
