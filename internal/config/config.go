package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/example/flyermask/internal/theme"
)

// Notify holds notification settings.
type Notify struct {
	Export bool
	Submit bool
	Copy   bool
}

// Brush holds the initial brush and zoom settings of the editor.
type Brush struct {
	Radius   float64
	ZoomStep float64
}

// Editor holds limits applied to editing sessions.
type Editor struct {
	MaxDimension int
}

// Inpaint configures the inpainting service client.
type Inpaint struct {
	Endpoint      string
	APIKey        string
	Scheduler     string
	GuidanceScale float64
	Steps         int
	Strength      float64
	Samples       int
	Timeout       time.Duration
}

// Server configures the HTTP session service.
type Server struct {
	Addr       string
	SessionTTL time.Duration
	MaxUpload  int64
}

// Config holds the application configuration.
type Config struct {
	Theme     string
	SaveDir   string
	PublicURL string
	Brush     Brush
	Editor    Editor
	Inpaint   Inpaint
	Server    Server
	Notify    Notify
	Themes    map[string]*theme.Theme
}

// New creates a new Config with defaults.
func New() *Config {
	return &Config{
		Theme: "", // Empty allows fallback to env/default
		Brush: Brush{
			Radius:   10,
			ZoomStep: 0.1,
		},
		Editor: Editor{
			MaxDimension: 8192,
		},
		Inpaint: Inpaint{
			Endpoint:      "https://api.segmind.com/v1/flux-inpaint",
			Scheduler:     "FlowMatchEulerDiscreteScheduler",
			GuidanceScale: 3.5,
			Steps:         24,
			Strength:      0.9,
			Samples:       1,
			Timeout:       2 * time.Minute,
		},
		Server: Server{
			Addr:       ":8080",
			SessionTTL: 30 * time.Minute,
			MaxUpload:  20 << 20,
		},
		Themes: make(map[string]*theme.Theme),
	}
}

// String implements fmt.Stringer and returns the configuration in RC format.
func (c *Config) String() string {
	var sb strings.Builder

	if c.Theme != "" {
		fmt.Fprintf(&sb, "theme = %s\n", c.Theme)
	}
	if c.SaveDir != "" {
		fmt.Fprintf(&sb, "save_dir = %s\n", c.SaveDir)
	}
	if c.PublicURL != "" {
		fmt.Fprintf(&sb, "public_url = %s\n", c.PublicURL)
	}
	sb.WriteString("\n")

	sb.WriteString("[brush]\n")
	fmt.Fprintf(&sb, "radius = %g\n", c.Brush.Radius)
	fmt.Fprintf(&sb, "zoom_step = %g\n", c.Brush.ZoomStep)
	sb.WriteString("\n")

	sb.WriteString("[editor]\n")
	fmt.Fprintf(&sb, "max_dimension = %d\n", c.Editor.MaxDimension)
	sb.WriteString("\n")

	sb.WriteString("[inpaint]\n")
	fmt.Fprintf(&sb, "endpoint = %s\n", c.Inpaint.Endpoint)
	if c.Inpaint.APIKey != "" {
		fmt.Fprintf(&sb, "api_key = %s\n", c.Inpaint.APIKey)
	}
	fmt.Fprintf(&sb, "scheduler = %s\n", c.Inpaint.Scheduler)
	fmt.Fprintf(&sb, "guidance_scale = %g\n", c.Inpaint.GuidanceScale)
	fmt.Fprintf(&sb, "steps = %d\n", c.Inpaint.Steps)
	fmt.Fprintf(&sb, "strength = %g\n", c.Inpaint.Strength)
	fmt.Fprintf(&sb, "samples = %d\n", c.Inpaint.Samples)
	fmt.Fprintf(&sb, "timeout = %s\n", c.Inpaint.Timeout)
	sb.WriteString("\n")

	sb.WriteString("[server]\n")
	fmt.Fprintf(&sb, "addr = %s\n", c.Server.Addr)
	fmt.Fprintf(&sb, "session_ttl = %s\n", c.Server.SessionTTL)
	fmt.Fprintf(&sb, "max_upload = %d\n", c.Server.MaxUpload)
	sb.WriteString("\n")

	sb.WriteString("[notify]\n")
	fmt.Fprintf(&sb, "export = %v\n", c.Notify.Export)
	fmt.Fprintf(&sb, "submit = %v\n", c.Notify.Submit)
	fmt.Fprintf(&sb, "copy = %v\n", c.Notify.Copy)
	sb.WriteString("\n")

	// Sorted for deterministic output
	var themeNames []string
	for name := range c.Themes {
		themeNames = append(themeNames, name)
	}
	sort.Strings(themeNames)

	for _, name := range themeNames {
		t := c.Themes[name]
		fmt.Fprintf(&sb, "[theme.%s]\n", name)
		fmt.Fprintf(&sb, "Name: %s\n", t.Name)
		for _, f := range t.Fields() {
			fmt.Fprintf(&sb, "%s: %s\n", f.Name, theme.FormatColor(f.Color))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
