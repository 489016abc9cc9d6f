// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package version

import (
	"runtime/debug"
	"strings"
	"testing"

	"go.astrophena.name/stylebot/internal/testutil"
)

func TestLoadInfo(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		bi          *debug.BuildInfo
		ok          bool
		wantVersion string
		wantCommit  string
	}{
		"no build info": {
			ok:          false,
			wantVersion: "devel",
		},
		"devel with commit": {
			bi: &debug.BuildInfo{
				Main: debug.Module{Version: "(devel)"},
				Settings: []debug.BuildSetting{
					{Key: "vcs.revision", Value: "abcdef"},
					{Key: "vcs.time", Value: "2026-10-01T00:00:00Z"},
				},
			},
			ok:          true,
			wantVersion: "devel",
			wantCommit:  "abcdef",
		},
		"tagged": {
			bi: &debug.BuildInfo{
				Main: debug.Module{Version: "v1.2.3"},
			},
			ok:          true,
			wantVersion: "v1.2.3",
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			i := loadInfo(func() (*debug.BuildInfo, bool) { return tc.bi, tc.ok })
			testutil.AssertEqual(t, i.Version, tc.wantVersion)
			testutil.AssertEqual(t, i.Commit, tc.wantCommit)
		})
	}
}

func TestUserAgent(t *testing.T) {
	t.Parallel()

	ua := userAgent(Info{Name: "stylebot", Version: "devel", Commit: "abcdef"})
	testutil.AssertEqual(t, ua, "stylebot/abcdef (+https://astrophena.name/bleep-bloop)")

	ua = userAgent(Info{Name: "stylebot", Version: "v1.0.0"})
	if !strings.HasPrefix(ua, "stylebot/v1.0.0 ") {
		t.Fatalf("unexpected user agent: %q", ua)
	}
}

func TestInfoString(t *testing.T) {
	t.Parallel()

	s := Info{
		Name:    "stylebot",
		Version: "devel",
		Commit:  "abcdef",
		BuiltAt: "now",
		Go:      "go1.24.0",
		OS:      "linux",
		Arch:    "amd64",
	}.String()
	testutil.AssertEqual(t, s, "stylebot devel (go1.24.0, linux/amd64)\ncommit abcdef\nbuilt at now\n")
}
