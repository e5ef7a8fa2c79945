package boxes

import (
	"testing"

	"github.com/psantana5/boxbot/pkg/geometry"
	"github.com/psantana5/boxbot/pkg/host/hosttest"
	"github.com/psantana5/boxbot/pkg/logging"
	"github.com/psantana5/boxbot/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func supervisorWithMasses(masses ...float64) *hosttest.Supervisor {
	sup := hosttest.NewSupervisor()
	for i, m := range masses {
		sup.AddBox(i+1, geometry.Vec3{float64(i), 0, 0}, m)
	}
	return sup
}

func TestLoadSkipsMissingBoxes(t *testing.T) {
	sup := supervisorWithMasses(1, 2, 3)
	delete(sup.Nodes, "CAIXA02")

	loaded := Load(sup, DefaultPrefix, DefaultCount, logging.Discard())

	require.Len(t, loaded, 2)
	assert.Equal(t, "CAIXA01", loaded[0].Name)
	assert.Equal(t, 1, loaded[0].Index)
	assert.Equal(t, "CAIXA03", loaded[1].Name)
	assert.Equal(t, 3, loaded[1].Index)
}

func TestSelectTargetPicksLightestPositive(t *testing.T) {
	sup := supervisorWithMasses(2.0, 0.5, 1.5, 0.0)
	loaded := Load(sup, DefaultPrefix, 4, logging.Discard())

	sel := SelectTarget(loaded, logging.Discard())

	require.True(t, sel.Found)
	assert.Equal(t, "CAIXA02", sel.Target.Name)
	assert.Equal(t, 0.5, sel.Mass)
	assert.Len(t, sel.Candidates, 3)
}

func TestSelectTargetNeverPicksInvalidMass(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(sup *hosttest.Supervisor)
		want   string
		wantOK bool
	}{
		{
			name: "Zero and negative masses",
			setup: func(sup *hosttest.Supervisor) {
				sup.AddBox(1, geometry.Vec3{}, 0)
				sup.AddBox(2, geometry.Vec3{}, -1)
				sup.AddBox(3, geometry.Vec3{}, 3)
			},
			want:   "CAIXA03",
			wantOK: true,
		},
		{
			name: "Missing mass field",
			setup: func(sup *hosttest.Supervisor) {
				n := sup.AddBox(1, geometry.Vec3{}, 0.1)
				delete(n.Fields, models.MassField)
				sup.AddBox(2, geometry.Vec3{}, 0.9)
			},
			want:   "CAIXA02",
			wantOK: true,
		},
		{
			name: "Unreadable mass field",
			setup: func(sup *hosttest.Supervisor) {
				n := sup.AddBox(1, geometry.Vec3{}, 0.1)
				n.Fields[models.MassField].Err = hosttest.ErrBrokenField
				sup.AddBox(2, geometry.Vec3{}, 0.9)
			},
			want:   "CAIXA02",
			wantOK: true,
		},
		{
			name: "No usable box",
			setup: func(sup *hosttest.Supervisor) {
				sup.AddBox(1, geometry.Vec3{}, 0)
				n := sup.AddBox(2, geometry.Vec3{}, 1)
				delete(n.Fields, models.MassField)
			},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sup := hosttest.NewSupervisor()
			tt.setup(sup)

			sel := SelectTarget(Load(sup, DefaultPrefix, DefaultCount, logging.Discard()), logging.Discard())

			assert.Equal(t, tt.wantOK, sel.Found)
			if tt.wantOK {
				assert.Equal(t, tt.want, sel.Target.Name)
			}
			for _, c := range sel.Candidates {
				assert.Greater(t, c.Mass, 0.0)
			}
		})
	}
}

func TestSelectTargetTieKeepsLowestIndex(t *testing.T) {
	sup := supervisorWithMasses(1.0, 0.3, 0.3, 0.7)

	sel := SelectTarget(Load(sup, DefaultPrefix, 4, logging.Discard()), logging.Discard())

	require.True(t, sel.Found)
	assert.Equal(t, 2, sel.Target.Index)
}
