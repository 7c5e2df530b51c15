// Package hcl provides the HCL implementation of config.Loader. It finds
// the manifest files, decodes the workspace and package blocks and
// translates them into the format-agnostic config.Model.
//
// A manifest declares exactly one workspace block and any number of package
// blocks, spread across as many .hcl files as convenient:
//
//	workspace {
//	  root = "."
//	  vcs {
//	    type   = "git"
//	    url    = "https://github.com/rock-core/buildconf"
//	    branch = "master"
//	  }
//	  seed_config = { osdeps_mode = "all" }
//	}
//
//	package "base/cmake" {
//	  srcdir     = "base/cmake"
//	  prefix     = "install"
//	  depends_on = []
//	  vcs {
//	    type = "git"
//	    url  = "https://github.com/rock-core/base-cmake"
//	  }
//	}
//
// Relative paths are resolved against the workspace root, which itself
// defaults to the directory of the file declaring the workspace.
package hcl
