package access

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hitoshi/eventhub/internal/model"
)

//go:embed policies.yaml
var defaultPolicies []byte

// Policies はリソース名をキーとするResourceConfigの集合。
type Policies map[string]ResourceConfig

// Get は名前に対応する設定を返す。
func (p Policies) Get(name string) (ResourceConfig, bool) {
	cfg, ok := p[name]
	return cfg, ok
}

// MustGet は名前に対応する設定を返す。未定義の場合はpanicする。
// 起動時の配線でのみ使用する。
func (p Policies) MustGet(name string) ResourceConfig {
	cfg, ok := p[name]
	if !ok {
		panic(fmt.Sprintf("access: no policy for resource %q", name))
	}
	return cfg
}

type policyFile struct {
	Resources []policyEntry `yaml:"resources"`
}

// policyEntry のロール一覧はキー省略時にnilとなり、未設定として扱われる。
type policyEntry struct {
	Name        string   `yaml:"name"`
	CreateRoles []string `yaml:"createRoles"`
	UpdateRoles []string `yaml:"updateRoles"`
	DeleteRoles []string `yaml:"deleteRoles"`
	ReadRoles   []string `yaml:"readRoles"`
	PublicRead  bool     `yaml:"publicRead"`
	OwnerField  string   `yaml:"ownerField"`
}

// DefaultPolicies は組み込みのポリシー定義を返す。
func DefaultPolicies() (Policies, error) {
	return ParsePolicies(defaultPolicies)
}

// LoadPolicies はポリシーファイルを読み込む。pathが空なら組み込み定義を使う。
func LoadPolicies(path string) (Policies, error) {
	if path == "" {
		return DefaultPolicies()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}
	return ParsePolicies(data)
}

// ParsePolicies はYAMLのポリシー定義を解析する。
// 未知のロールやリソース名の重複はエラーとする。
func ParsePolicies(data []byte) (Policies, error) {
	var file policyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse policy file: %w", err)
	}

	policies := make(Policies, len(file.Resources))
	for i, e := range file.Resources {
		if e.Name == "" {
			return nil, fmt.Errorf("resource #%d: name is required", i)
		}
		if _, dup := policies[e.Name]; dup {
			return nil, fmt.Errorf("resource %q: defined more than once", e.Name)
		}

		cfg := ResourceConfig{
			Name:       e.Name,
			PublicRead: e.PublicRead,
			OwnerField: e.OwnerField,
		}
		var err error
		if cfg.CreateRoles, err = parseRoleSet(e.CreateRoles); err != nil {
			return nil, fmt.Errorf("resource %q createRoles: %w", e.Name, err)
		}
		if cfg.UpdateRoles, err = parseRoleSet(e.UpdateRoles); err != nil {
			return nil, fmt.Errorf("resource %q updateRoles: %w", e.Name, err)
		}
		if cfg.DeleteRoles, err = parseRoleSet(e.DeleteRoles); err != nil {
			return nil, fmt.Errorf("resource %q deleteRoles: %w", e.Name, err)
		}
		if cfg.ReadRoles, err = parseRoleSet(e.ReadRoles); err != nil {
			return nil, fmt.Errorf("resource %q readRoles: %w", e.Name, err)
		}
		policies[e.Name] = cfg
	}
	return policies, nil
}

func parseRoleSet(names []string) (RoleSet, error) {
	if names == nil {
		return nil, nil
	}
	set := make(RoleSet, 0, len(names))
	for _, n := range names {
		role, err := model.ParseRole(n)
		if err != nil {
			return nil, err
		}
		if !set.Contains(role) {
			set = append(set, role)
		}
	}
	return set, nil
}
