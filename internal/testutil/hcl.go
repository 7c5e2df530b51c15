package testutil

import "maps"

// RockWorkspace is a small workspace manifest: base/types depends on
// base/logging, which depends on base/cmake. gui/vizkit3d is checked out
// from svn and depends on base/types.
var RockWorkspace = map[string]string{
	"workspace.hcl": `
workspace {
  vcs {
    type   = "git"
    url    = "https://github.com/rock-core/buildconf"
    branch = "master"
  }
  seed_config = {
    osdeps_mode = "all"
  }
}
`,
	"packages/base.hcl": `
package "base/cmake" {
  prefix = "install"
  vcs {
    type = "git"
    url  = "https://github.com/rock-core/base-cmake"
  }
}

package "base/logging" {
  prefix     = "install"
  depends_on = ["base/cmake"]
  vcs {
    type = "git"
    url  = "https://github.com/rock-core/base-logging"
  }
}

package "base/types" {
  prefix     = "install"
  depends_on = ["base/logging"]
  vcs {
    type = "git"
    url  = "https://github.com/rock-core/base-types"
  }
}
`,
	"packages/gui.hcl": `
package "gui/vizkit3d" {
  prefix     = "install"
  depends_on = ["base/types"]
  vcs {
    type = "svn"
    url  = "https://svn.example.org/vizkit3d"
  }
}
`,
}

// WithFiles returns a copy of base with extra files added or replaced.
func WithFiles(base map[string]string, extra map[string]string) map[string]string {
	files := maps.Clone(base)
	maps.Copy(files, extra)
	return files
}
