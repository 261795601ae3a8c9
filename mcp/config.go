package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

const DefaultConfigPath = "servers_config.json"

// ${NAME} だけを置換対象にする。それ以外の $ はそのまま残す
var envPlaceholder = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

type Transport string

const (
	TransportStdio      Transport = "stdio"
	TransportStreamable Transport = "streamable"
	TransportSSE        Transport = "sse"
)

type MCPConfig struct {
	Servers []ServerSpec
}

// MCPServerConfig は mcpServers 配下の1エントリ（展開前）
type MCPServerConfig struct {
	Command string            `json:"command" yaml:"command"`
	Args    []string          `json:"args" yaml:"args"`
	Env     map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
	URL     string            `json:"url,omitempty" yaml:"url,omitempty"`
	Type    string            `json:"type,omitempty" yaml:"type,omitempty"`
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// ServerSpec is a fully resolved server entry. It is not modified after
// LoadMCPConfig returns.
type ServerSpec struct {
	Name      string
	Transport Transport
	Command   string
	Args      []string
	Env       map[string]string
	URL       string
	Headers   map[string]string
}

type namedServerConfig struct {
	name   string
	config MCPServerConfig
}

// LoadMCPConfig reads the server file at path. Servers are returned in the
// order they appear in the document.
func LoadMCPConfig(path string) (*MCPConfig, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, err
	}

	var entries []namedServerConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		entries, err = decodeYAMLServers(bytes)
	default:
		entries, err = decodeJSONServers(bytes)
	}
	if err != nil {
		return nil, err
	}

	servers := make([]ServerSpec, 0, len(entries))
	for _, entry := range entries {
		spec, err := entry.resolve()
		if err != nil {
			return nil, err
		}
		servers = append(servers, spec)
	}

	return &MCPConfig{Servers: servers}, nil
}

func decodeJSONServers(data []byte) ([]namedServerConfig, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: JSONとして不正です", ErrConfigParse)
	}

	servers := gjson.GetBytes(data, "mcpServers")
	if !servers.IsObject() {
		return nil, fmt.Errorf("%w: \"mcpServers\" オブジェクトがありません", ErrConfigParse)
	}

	var entries []namedServerConfig
	var decodeErr error
	servers.ForEach(func(key, value gjson.Result) bool {
		var config MCPServerConfig
		if err := json.Unmarshal([]byte(value.Raw), &config); err != nil {
			decodeErr = fmt.Errorf("%w: server %q: %v", ErrConfigParse, key.String(), err)
			return false
		}
		entries = appendServer(entries, key.String(), config)
		return true
	})
	if decodeErr != nil {
		return nil, decodeErr
	}

	return entries, nil
}

func decodeYAMLServers(data []byte) ([]namedServerConfig, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: トップレベルがマッピングではありません", ErrConfigParse)
	}

	var servers *yaml.Node
	root := doc.Content[0]
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value == "mcpServers" {
			servers = root.Content[i+1]
		}
	}
	if servers == nil || servers.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: \"mcpServers\" マッピングがありません", ErrConfigParse)
	}

	var entries []namedServerConfig
	for i := 0; i+1 < len(servers.Content); i += 2 {
		name := servers.Content[i].Value
		var config MCPServerConfig
		if err := servers.Content[i+1].Decode(&config); err != nil {
			return nil, fmt.Errorf("%w: server %q: %v", ErrConfigParse, name, err)
		}
		entries = appendServer(entries, name, config)
	}

	return entries, nil
}

// appendServer keeps the first position of a duplicated name but the last
// definition, like encoding/json does for repeated keys.
func appendServer(entries []namedServerConfig, name string, config MCPServerConfig) []namedServerConfig {
	for i := range entries {
		if entries[i].name == name {
			entries[i].config = config
			return entries
		}
	}
	return append(entries, namedServerConfig{name: name, config: config})
}

func (e namedServerConfig) resolve() (ServerSpec, error) {
	c := e.config
	spec := ServerSpec{Name: e.name}

	transport, err := resolveTransport(c)
	if err != nil {
		return ServerSpec{}, fmt.Errorf("%w: server %q: %v", ErrConfigParse, e.name, err)
	}
	spec.Transport = transport

	var missing string
	expand := func(s string) string {
		return envPlaceholder.ReplaceAllStringFunc(s, func(placeholder string) string {
			key := envPlaceholder.FindStringSubmatch(placeholder)[1]
			v, ok := os.LookupEnv(key)
			if !ok && missing == "" {
				missing = key
			}
			return v
		})
	}

	spec.Command = expand(c.Command)
	spec.URL = expand(c.URL)
	if len(c.Args) > 0 {
		spec.Args = make([]string, len(c.Args))
		for i, arg := range c.Args {
			spec.Args[i] = expand(arg)
		}
	}
	spec.Env = expandMap(c.Env, expand)
	spec.Headers = expandMap(c.Headers, expand)

	if missing != "" {
		return ServerSpec{}, &MissingEnvVarError{Server: e.name, Var: missing}
	}

	return spec, nil
}

func resolveTransport(c MCPServerConfig) (Transport, error) {
	switch strings.ToLower(c.Type) {
	case "":
		if c.Command != "" {
			return TransportStdio, nil
		}
		if c.URL != "" {
			return TransportStreamable, nil
		}
		return "", errors.New("command も url も指定されていません")
	case "stdio":
		if c.Command == "" {
			return "", errors.New("stdio には command が必要です")
		}
		return TransportStdio, nil
	case "streamable", "streamable-http", "http":
		if c.URL == "" {
			return "", errors.New("streamable には url が必要です")
		}
		return TransportStreamable, nil
	case "sse":
		if c.URL == "" {
			return "", errors.New("sse には url が必要です")
		}
		return TransportSSE, nil
	default:
		return "", fmt.Errorf("未対応のtypeです: %s", c.Type)
	}
}

func expandMap(m map[string]string, expand func(string) string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]string, len(m))
	for _, k := range keys {
		out[k] = expand(m[k])
	}
	return out
}
