// Package config defines the format-agnostic workspace model for the
// application, along with the Loader interface used to populate it from
// concrete manifest formats.
//
// The `config.Model` is the single source of truth for the `jobgraph` and
// `updater` packages. Concrete implementations of the loader, such as for
// HCL, are provided in separate packages.
package config
