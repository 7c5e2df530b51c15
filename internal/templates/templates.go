// Package templates embeds the default job and pipeline templates.
//
// Every template reads each parameter it is given; the updater supplies
// exactly the set documented at the top of each render call site.
package templates

import (
	"embed"

	"github.com/vk/jobsync/internal/render"
)

//go:embed *.tmpl
var files embed.FS

// Names lists the templates shipped with the binary.
var Names = []string{
	"buildconf.xml",
	"package.xml",
	"buildconf.pipeline",
	"package.pipeline",
	"import-git.pipeline",
	"import-svn.pipeline",
	"buildconf-Gemfile",
	"buildconf-vagrant-Gemfile",
}

// Store returns a render.Store over the embedded templates.
func Store() *render.FSStore {
	return render.NewFSStore(files)
}
