// Package boxes resolves the numbered box nodes of the arena and picks the
// navigation target among them.
package boxes

import (
	"errors"
	"math"

	"github.com/psantana5/boxbot/pkg/host"
	"github.com/psantana5/boxbot/pkg/logging"
	"github.com/psantana5/boxbot/pkg/models"
)

// DefaultPrefix and DefaultCount describe the arena boxes CAIXA01..CAIXA20
const (
	DefaultPrefix = "CAIXA"
	DefaultCount  = 20
)

// Load looks up boxes prefix01..prefixNN by DEF name. Missing boxes are
// logged and skipped; the returned slice keeps index order.
func Load(sup host.Supervisor, prefix string, count int, logger *logging.Logger) []models.Box {
	loaded := make([]models.Box, 0, count)
	for i := 1; i <= count; i++ {
		name := models.BoxName(prefix, i)
		node, ok := sup.NodeByDef(name)
		if !ok {
			logger.Warn("failed to load box", logging.Fields{"box": name})
			continue
		}
		loaded = append(loaded, models.Box{Name: name, Index: i, Node: node})
		logger.Info("box loaded", logging.Fields{"box": name, "index": i})
	}

	logger.Info("boxes loaded", logging.Fields{"loaded": len(loaded), "expected": count})
	return loaded
}

// Candidate is a box with a usable mass
type Candidate struct {
	Box  models.Box
	Mass float64
}

// Selection is the outcome of target selection
type Selection struct {
	Target     models.Box
	Mass       float64
	Found      bool
	Candidates []Candidate
}

// SelectTarget returns the lightest box with a positive mass. Boxes without
// a mass field, with an unreadable mass or with mass <= 0 are never chosen.
// Ties keep the first box in slice order.
func SelectTarget(boxes []models.Box, logger *logging.Logger) Selection {
	sel := Selection{Mass: math.Inf(1)}

	for _, box := range boxes {
		mass, err := box.Mass()
		if err != nil {
			if errors.Is(err, host.ErrNoField) {
				logger.Info("box has no mass field", logging.Fields{"box": box.Name})
			} else {
				logger.Warn("failed to read box mass", logging.Fields{"box": box.Name, "error": err.Error()})
			}
			continue
		}
		logger.Debug("box mass", logging.Fields{"box": box.Name, "mass_kg": mass})

		if mass <= 0 {
			continue
		}
		sel.Candidates = append(sel.Candidates, Candidate{Box: box, Mass: mass})
		if mass < sel.Mass {
			sel.Mass = mass
			sel.Target = box
			sel.Found = true
		}
	}

	for _, c := range sel.Candidates {
		fields := logging.Fields{"box": c.Box.Name, "mass_kg": c.Mass}
		if sel.Found && c.Box.Index == sel.Target.Index {
			fields["target"] = true
		}
		logger.Info("candidate box", fields)
	}

	if sel.Found {
		logger.Info("light box identified", logging.Fields{"box": sel.Target.Name, "mass_kg": sel.Mass})
	} else {
		sel.Mass = 0
		logger.Warn("no light box found")
	}
	return sel
}
