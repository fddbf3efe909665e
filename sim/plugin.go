package sim

// Plugin is a self-contained physics module. It registers component types,
// inserts resources and adds systems to a Builder.
type Plugin interface {
	// Name identifies the plugin. Other plugins refer to it in Deps.
	Name() string
	// Deps names the plugins that must have been added before this one.
	Deps() []string
	// Build mutates the builder.
	Build(b *Builder) error
}
