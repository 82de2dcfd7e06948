package agent

import (
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/arcadesync/pkg/arcadesync/digest"
	"github.com/jamesainslie/arcadesync/pkg/arcadesync/types"
)

func TestNeedsUpdate(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/game/Package/a.zip", []byte("hello"), 0o644))
	p := NewPlanner(fs, "/game/Package")

	sum := digest.Bytes([]byte("hello"))
	tests := []struct {
		name   string
		entry  types.PackageEntry
		want   bool
		reason string
	}{
		{name: "absent", entry: types.PackageEntry{Name: "b.zip", Hash: sum}, want: true, reason: ReasonMissing},
		{name: "match", entry: types.PackageEntry{Name: "a.zip", Hash: sum}, want: false, reason: ReasonCurrent},
		{name: "match upper case", entry: types.PackageEntry{Name: "a.zip", Hash: strings.ToUpper(sum)}, want: false, reason: ReasonCurrent},
		{name: "nested name uses base", entry: types.PackageEntry{Name: `sub\a.zip`, Hash: sum}, want: false, reason: ReasonCurrent},
		{name: "mismatch", entry: types.PackageEntry{Name: "a.zip", Hash: digest.Bytes([]byte("other"))}, want: true, reason: ReasonChanged},
		{name: "bad name", entry: types.PackageEntry{Name: "dir/..", Hash: sum}, want: false, reason: ReasonBadEntry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := p.Check(tt.entry)
			assert.Equal(t, tt.want, item.NeedsUpdate)
			assert.Equal(t, tt.reason, item.Reason)
			assert.Equal(t, tt.want, p.NeedsUpdate(tt.entry))
		})
	}
}

func TestPlanKeepsManifestOrder(t *testing.T) {
	p := NewPlanner(afero.NewMemMapFs(), "/game")
	m := &types.Manifest{Files: []types.PackageEntry{{Name: "z.zip"}, {Name: "a.zip"}}}

	items := p.Plan(m)
	require.Len(t, items, 2)
	assert.Equal(t, "z.zip", items[0].Entry.Name)
	assert.Equal(t, "a.zip", items[1].Entry.Name)

	assert.Empty(t, p.Plan(nil))
}
