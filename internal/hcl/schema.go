package hcl

import "github.com/hashicorp/hcl/v2"

// fileRoot decodes every top-level block a manifest file may contain.
type fileRoot struct {
	Workspaces []*workspaceBlock `hcl:"workspace,block"`
	Packages   []*packageBlock   `hcl:"package,block"`
	Remain     hcl.Body          `hcl:",remain"`
}

type workspaceBlock struct {
	Root       string         `hcl:"root,optional"`
	VCS        *vcsBlock      `hcl:"vcs,block"`
	SeedConfig hcl.Expression `hcl:"seed_config,optional"`

	// file is the manifest the block was read from.
	file string
}

type packageBlock struct {
	Name      string    `hcl:"name,label"`
	SrcDir    string    `hcl:"srcdir,optional"`
	Prefix    string    `hcl:"prefix,optional"`
	DependsOn []string  `hcl:"depends_on,optional"`
	VCS       *vcsBlock `hcl:"vcs,block"`

	file string
}

type vcsBlock struct {
	Type   string `hcl:"type"`
	URL    string `hcl:"url,optional"`
	Branch string `hcl:"branch,optional"`
}
