package cmd

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"text/template"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configForce bool

// configDirFunc returns the config directory path, replaceable in tests.
var configDirFunc = defaultConfigDir

func defaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "tb"), nil
}

// configKeys lists every key tb reads, in display order.
var configKeys = []string{
	"state_dir",
	"db_path",
	"log_level",
	"agent",
	"serve.host",
	"serve.port",
	"serve.cors_origins",
	"activity.default_limit",
}

var envKeyReplacer = strings.NewReplacer(".", "_")

// envVarFor maps a config key to the environment variable viper consults.
func envVarFor(key string) string {
	return "TB_" + strings.ToUpper(envKeyReplacer.Replace(key))
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or manage configuration",
	Long: `Show or manage tb configuration.

Running bare 'tb config' is the same as 'tb config show'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config file with commented defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configInitRun()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration with sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a key in the config file",
	Long: `Set a key in the config file, creating the file if needed.
Comments and other keys are preserved. serve.cors_origins takes a
comma-separated list.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return configSetRun(args[0], args[1])
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := configFilePath()
		if err != nil {
			return err
		}
		fmt.Fprintln(ui.Out, p)
		return nil
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open config file in $EDITOR",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configEditRun()
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite existing config file")
	configCmd.AddCommand(configInitCmd, configShowCmd, configSetCmd, configPathCmd, configEditCmd)
	rootCmd.AddCommand(configCmd)
}

const configTemplate = `# tb configuration
# Effective values and their sources: tb config show

# Directory for the database, PID file and server log
# state_dir: {{ .StateDir }}

# SQLite database path
# db_path: {{ .DBPath }}

# debug, info, warn or error
log_level: {{ .LogLevel }}

# Agent id recorded on CLI mutations (override with --agent)
agent: "{{ .Agent }}"

# HTTP API server
serve:
  host: "{{ .ServeHost }}"
  port: {{ .ServePort }}
  # Empty allows any origin
  cors_origins: []

activity:
  # Events returned when a request gives no limit (0 = unlimited)
  default_limit: {{ .ActivityLimit }}
`

func renderConfig() ([]byte, error) {
	tmpl, err := template.New("config").Parse(configTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse config template: %w", err)
	}
	data := struct {
		StateDir, DBPath, LogLevel, Agent, ServeHost string
		ServePort, ActivityLimit                     int
	}{
		StateDir:      viper.GetString("state_dir"),
		DBPath:        viper.GetString("db_path"),
		LogLevel:      viper.GetString("log_level"),
		Agent:         viper.GetString("agent"),
		ServeHost:     viper.GetString("serve.host"),
		ServePort:     viper.GetInt("serve.port"),
		ActivityLimit: viper.GetInt("activity.default_limit"),
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render config template: %w", err)
	}
	return buf.Bytes(), nil
}

func configFilePath() (string, error) {
	dir, err := configDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func writeConfigFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func configInitRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfgPath); err == nil {
		if !configForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", cfgPath)
		}
		ui.Warning("Overwriting existing config file")
	}

	data, err := renderConfig()
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would create config file: %s", cfgPath)
		fmt.Fprintln(ui.Out)
		fmt.Fprint(ui.Out, string(data))
		return nil
	}

	if err := writeConfigFile(cfgPath, data); err != nil {
		return err
	}
	ui.Success("Config file created: %s", cfgPath)
	return nil
}

func configShowRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfgPath); err == nil {
		ui.Info("Config file: %s", cfgPath)
	} else {
		ui.Info("Config file: (none)")
	}
	fmt.Fprintln(ui.Out)

	inFile := fileKeys(cfgPath)
	table := ui.Table([]string{"Key", "Value", "Source"})
	for _, key := range configKeys {
		table.Append([]string{key, fmt.Sprintf("%v", viper.Get(key)), sourceOf(key, inFile)})
	}
	return table.Render()
}

// fileKeys returns the dotted keys set in the config file at path.
func fileKeys(path string) map[string]bool {
	keys := make(map[string]bool)
	data, err := os.ReadFile(path)
	if err != nil {
		return keys
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil || len(doc.Content) == 0 {
		return keys
	}
	collectKeys("", doc.Content[0], keys)
	return keys
}

func collectKeys(prefix string, n *yaml.Node, keys map[string]bool) {
	if n.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i].Value
		if prefix != "" {
			key = prefix + "." + key
		}
		if n.Content[i+1].Kind == yaml.MappingNode {
			collectKeys(key, n.Content[i+1], keys)
			continue
		}
		keys[key] = true
	}
}

// sourceOf reports where the effective value of key comes from.
func sourceOf(key string, inFile map[string]bool) string {
	if env := envVarFor(key); os.Getenv(env) != "" {
		return "env: " + env
	}
	if inFile[key] {
		return "file"
	}
	return "default"
}

func configSetRun(key, value string) error {
	if !slices.Contains(configKeys, key) {
		return fmt.Errorf("unknown config key %q (known: %s)", key, strings.Join(configKeys, ", "))
	}
	node, err := valueNode(key, value)
	if err != nil {
		return err
	}

	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	var doc yaml.Node
	data, err := os.ReadFile(cfgPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parse %s: %w", cfgPath, err)
		}
	case os.IsNotExist(err):
	default:
		return err
	}
	if len(doc.Content) == 0 {
		doc = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{Kind: yaml.MappingNode}}}
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return fmt.Errorf("%s: top level is not a mapping", cfgPath)
	}
	setNode(root, strings.Split(key, "."), node)

	if dryRun {
		ui.DryRunMsg("Would set %s = %s in %s", key, value, cfgPath)
		return nil
	}

	out, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := writeConfigFile(cfgPath, out); err != nil {
		return err
	}
	ui.Success("Set %s = %s", key, value)
	return nil
}

// valueNode validates value for key and builds its YAML node.
func valueNode(key, value string) (*yaml.Node, error) {
	switch key {
	case "serve.port", "activity.default_limit":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%s expects a non-negative integer, got %q", key, value)
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(n)}, nil
	case "log_level":
		var level slog.Level
		if err := level.UnmarshalText([]byte(value)); err != nil {
			return nil, fmt.Errorf("invalid log_level %q: use debug, info, warn or error", value)
		}
	case "serve.cors_origins":
		seq := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
		for _, o := range strings.Split(value, ",") {
			if o = strings.TrimSpace(o); o != "" {
				item := &yaml.Node{}
				item.SetString(o)
				seq.Content = append(seq.Content, item)
			}
		}
		return seq, nil
	}
	n := &yaml.Node{}
	n.SetString(value)
	return n, nil
}

// setNode sets the dotted path under mapping m, creating intermediate mappings.
func setNode(m *yaml.Node, path []string, v *yaml.Node) {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value != path[0] {
			continue
		}
		if len(path) == 1 {
			m.Content[i+1] = v
			return
		}
		if m.Content[i+1].Kind != yaml.MappingNode {
			m.Content[i+1] = &yaml.Node{Kind: yaml.MappingNode}
		}
		setNode(m.Content[i+1], path[1:], v)
		return
	}

	key := &yaml.Node{Kind: yaml.ScalarNode, Value: path[0]}
	if len(path) == 1 {
		m.Content = append(m.Content, key, v)
		return
	}
	child := &yaml.Node{Kind: yaml.MappingNode}
	m.Content = append(m.Content, key, child)
	setNode(child, path[1:], v)
}

func configEditRun() error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		return fmt.Errorf("$EDITOR is not set; set it to your preferred editor (e.g. export EDITOR=vim)")
	}

	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s (run 'tb config init' first)", cfgPath)
	}

	if dryRun {
		ui.DryRunMsg("Would open %s in %s", cfgPath, editor)
		return nil
	}

	editCmd := exec.Command(editor, cfgPath)
	editCmd.Stdin = os.Stdin
	editCmd.Stdout = os.Stdout
	editCmd.Stderr = os.Stderr
	return editCmd.Run()
}
