package templates

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/jobsync/internal/config"
	"github.com/vk/jobsync/internal/ctxlog"
	"github.com/vk/jobsync/internal/render"
)

func TestStore_ShipsEveryTemplate(t *testing.T) {
	store := Store()
	for _, name := range Names {
		assert.True(t, store.HasTemplate(name), "template %s", name)
	}
	assert.False(t, store.HasTemplate("import-hg.pipeline"))
}

func TestImportTemplates(t *testing.T) {
	ctx := ctxlog.Discard(context.Background())
	r := render.New(Store())

	t.Run("git with credentials", func(t *testing.T) {
		out, err := r.Render(ctx, "import-git.pipeline", render.Params{
			"vcs":            config.VCS{Type: "git", URL: "https://github.com/rock-core/base-cmake", Branch: "devel"},
			"dir":            "base/cmake",
			"credentials_id": "autoproj-git-https-github.com",
		})
		require.NoError(t, err)
		assert.Contains(t, out, "branches: [[name: 'devel']]")
		assert.Contains(t, out, "relativeTargetDir: 'base/cmake'")
		assert.Contains(t, out, "credentialsId: 'autoproj-git-https-github.com'")
	})

	t.Run("git anonymous defaults to master", func(t *testing.T) {
		out, err := r.Render(ctx, "import-git.pipeline", render.Params{
			"vcs":            config.VCS{Type: "git", URL: "https://github.com/rock-core/base-cmake"},
			"dir":            "base/cmake",
			"credentials_id": "",
		})
		require.NoError(t, err)
		assert.Contains(t, out, "branches: [[name: 'master']]")
		assert.NotContains(t, out, "credentialsId")
	})

	t.Run("svn", func(t *testing.T) {
		out, err := r.Render(ctx, "import-svn.pipeline", render.Params{
			"vcs":            config.VCS{Type: "svn", URL: "https://svn.example.org/trunk"},
			"dir":            "tools/orogen",
			"credentials_id": "",
		})
		require.NoError(t, err)
		assert.Contains(t, out, "remote: 'https://svn.example.org/trunk'")
		assert.Contains(t, out, "local: 'tools/orogen'")
	})

	t.Run("gemfiles take no parameters", func(t *testing.T) {
		for _, name := range []string{"buildconf-Gemfile", "buildconf-vagrant-Gemfile"} {
			out, err := r.Render(ctx, name, nil)
			require.NoError(t, err)
			assert.Contains(t, out, "autoproj")
		}
	})
}
