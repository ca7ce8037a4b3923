package domain

// BindingKind is the kind of resource a worker configuration binds to
type BindingKind string

const (
	BindingKV BindingKind = "kv_namespace"
	BindingR2 BindingKind = "r2_bucket"
	BindingD1 BindingKind = "d1_database"
)

// Binding is one bound resource declared in a deploy config
type Binding struct {
	Kind BindingKind
	ID   string
}

// DeployConfig is the deployability metadata extracted from a repository's config file.
// A nil *DeployConfig means the repository is not deployable.
type DeployConfig struct {
	Source   string // file the config was parsed from
	Name     *string
	Main     *string
	Routes   []string
	Bindings []Binding
}

// ServiceName returns the declared name, or fallback when none was declared
func (d *DeployConfig) ServiceName(fallback string) string {
	if d == nil || d.Name == nil || *d.Name == "" {
		return fallback
	}
	return *d.Name
}
