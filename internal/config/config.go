package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/marklab/marksman/internal/llm"
)

type Config struct {
	SubmissionsDir     string          `yaml:"submissions_dir"`
	ResultsDir         string          `yaml:"results_dir"`
	FeedbackDir        string          `yaml:"feedback_dir"`
	TestCasesDir       string          `yaml:"test_cases_dir"`
	Python             string          `yaml:"python"`
	Workers            int             `yaml:"workers"`
	TestTimeoutSeconds int             `yaml:"test_timeout_seconds"`
	SkipPackageInstall bool            `yaml:"skip_package_install"`
	Logging            Logging         `yaml:"logging"`
	LLM                LLM             `yaml:"llm"`
	Tools              []Tool          `yaml:"tools"`
	Tasks              map[string]Task `yaml:"tasks"`
}

type Logging struct {
	Mode  string `yaml:"mode"`
	Level string `yaml:"level"`
}

type LLM struct {
	Model          string  `yaml:"model"`
	BaseURL        string  `yaml:"base_url"`
	Temperature    float64 `yaml:"temperature"`
	MaxTokens      int     `yaml:"max_tokens"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	EnvFile        string  `yaml:"env_file"`
}

// Tool is one external style checker run against each staged code file.
// Args is the full argv; every "{file}" element is replaced with the path
// under check. With CheckExitCode set, a nonzero exit means the tool found
// issues; otherwise any non-empty output does.
type Tool struct {
	Name          string   `yaml:"name"`
	Description   string   `yaml:"description"`
	Args          []string `yaml:"args"`
	CheckExitCode bool     `yaml:"check_exit_code"`
	PreferStderr  bool     `yaml:"prefer_stderr"`
	CleanText     string   `yaml:"clean_text"`
}

type Task struct {
	Description string          `yaml:"description"`
	Modules     []Module        `yaml:"modules"`
	Report      ReportStructure `yaml:"report_structure"`
}

type Module struct {
	ID                   string            `yaml:"module_id"`
	OutputModel          string            `yaml:"output_model"`
	RequiredData         map[string]string `yaml:"required_data"`
	SystemPromptTemplate string            `yaml:"system_prompt_template"`
	UserPromptTemplate   string            `yaml:"user_prompt_template"`
}

type ReportStructure struct {
	Header   string    `yaml:"header"`
	Sections []Section `yaml:"sections"`
	Footer   string    `yaml:"footer"`
}

type Section struct {
	ModuleID string `yaml:"module_id"`
	Title    string `yaml:"title"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.SubmissionsDir == "" {
		cfg.SubmissionsDir = "submissions"
	}
	if cfg.ResultsDir == "" {
		cfg.ResultsDir = "results"
	}
	if cfg.FeedbackDir == "" {
		cfg.FeedbackDir = "feedback"
	}
	if cfg.TestCasesDir == "" {
		cfg.TestCasesDir = "test_cases"
	}
	if cfg.Python == "" {
		cfg.Python = "python3"
	}
	if cfg.Workers < 1 {
		cfg.Workers = 4
	}
	if cfg.TestTimeoutSeconds < 1 {
		cfg.TestTimeoutSeconds = 30
	}
	if cfg.Logging.Mode == "" {
		cfg.Logging.Mode = "development"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.LLM.TimeoutSeconds < 1 {
		cfg.LLM.TimeoutSeconds = 120
	}
	if len(cfg.Tools) == 0 {
		cfg.Tools = DefaultTools()
	}
	for i, tool := range cfg.Tools {
		if tool.Name == "" {
			return fmt.Errorf("tool %d: name is required", i)
		}
		if len(tool.Args) == 0 {
			return fmt.Errorf("tool %q: args is required", tool.Name)
		}
	}
	if len(cfg.Tasks) == 0 {
		return fmt.Errorf("no tasks defined")
	}
	for name, task := range cfg.Tasks {
		if err := validateTask(name, task); err != nil {
			return err
		}
	}
	return nil
}

func validateTask(name string, task Task) error {
	if len(task.Modules) == 0 {
		return fmt.Errorf("task %q: no modules defined", name)
	}
	seen := make(map[string]bool, len(task.Modules))
	for i, m := range task.Modules {
		if m.ID == "" {
			return fmt.Errorf("task %q: module %d: module_id is required", name, i)
		}
		if seen[m.ID] {
			return fmt.Errorf("task %q: duplicate module_id %q", name, m.ID)
		}
		if m.UserPromptTemplate == "" {
			return fmt.Errorf("task %q: module %q: user_prompt_template is required", name, m.ID)
		}
		if m.OutputModel != "" {
			if _, ok := llm.LookupSchema(m.OutputModel); !ok {
				return fmt.Errorf("task %q: module %q: unknown output_model %q (known: %s)",
					name, m.ID, m.OutputModel, strings.Join(llm.SchemaNames(), ", "))
			}
		}
		// A module may only consume outputs of modules defined before it.
		for placeholder, spec := range m.RequiredData {
			ref, ok := strings.CutPrefix(spec, "module_output:")
			if !ok {
				continue
			}
			if !seen[ref] {
				return fmt.Errorf("task %q: module %q: placeholder %q references module output %q which is not defined earlier in the chain",
					name, m.ID, placeholder, ref)
			}
		}
		seen[m.ID] = true
	}
	for _, sec := range task.Report.Sections {
		if sec.ModuleID == "" {
			return fmt.Errorf("task %q: report section %q: module_id is required", name, sec.Title)
		}
	}
	return nil
}

// DefaultTools returns the built-in checker set used when the config does
// not declare its own tools block.
func DefaultTools() []Tool {
	return []Tool{
		{
			Name:        "flake8",
			Description: "Style Guide Enforcement",
			Args:        []string{"flake8", "{file}"},
			CleanText:   "No style issues found.",
		},
		{
			Name:          "black",
			Description:   "Code Formatting",
			Args:          []string{"black", "--check", "--diff", "{file}"},
			CheckExitCode: true,
			PreferStderr:  true,
			CleanText:     "No formatting issues found.",
		},
	}
}

// TaskNames returns the configured task names in sorted order.
func (c *Config) TaskNames() []string {
	names := make([]string, 0, len(c.Tasks))
	for name := range c.Tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
