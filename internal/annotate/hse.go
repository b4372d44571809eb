package annotate

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/inodb/peppi/internal/structure"
)

// DefaultHSERadius is the sphere radius, in Ångström, within which CA
// atoms are counted.
const DefaultHSERadius = 12.0

// maxPeptideBond is the largest CA–CA distance still treated as a
// peptide bond when building polypeptides.
const maxPeptideBond = 4.3

// HSEValue is the half-sphere exposure of one residue.
type HSEValue struct {
	Key   structure.ResidueKey
	Up    int
	Down  int
	Angle float64 // radians between CA→pseudo-CB and CA→CB; NaN when undefined
}

type ppResidue struct {
	key     structure.ResidueKey
	residue *structure.Residue
	ca      r3.Vec
}

// ComputeHSE computes CA-based half-sphere exposure for every residue of
// model m that has a polypeptide neighbour on both sides. The first and
// last residue of each polypeptide are not reported.
func ComputeHSE(m *structure.Model, modelIndex int, radius float64) []HSEValue {
	peptides := buildPolypeptides(m, modelIndex)

	var all []*ppResidue
	for _, pp := range peptides {
		all = append(all, pp...)
	}

	var out []HSEValue
	for _, pp := range peptides {
		for i := 1; i < len(pp)-1; i++ {
			r := pp[i]
			pcb := pseudoCB(pp[i-1].ca, r.ca, pp[i+1].ca)

			v := HSEValue{Key: r.key, Angle: cbAngle(r, pcb)}
			for _, o := range all {
				if o == r {
					continue
				}
				d := r3.Sub(o.ca, r.ca)
				if r3.Norm(d) >= radius {
					continue
				}
				if r3.Dot(d, pcb) > 0 {
					v.Up++
				} else {
					v.Down++
				}
			}
			out = append(out, v)
		}
	}
	return out
}

// buildPolypeptides splits each chain into runs of standard residues with
// a CA atom whose consecutive CA atoms are within peptide bond distance.
func buildPolypeptides(m *structure.Model, modelIndex int) [][]*ppResidue {
	var peptides [][]*ppResidue
	for _, c := range m.Chains {
		var current []*ppResidue
		for _, res := range c.Residues {
			if !structure.IsStandard(res.Name) {
				continue
			}
			ca, ok := res.Atom("CA")
			if !ok {
				continue
			}
			r := &ppResidue{
				key:     structure.ResidueKey{Model: modelIndex, Chain: c.ID, Seq: res.Seq, ICode: res.ICode},
				residue: res,
				ca:      ca.Coord,
			}
			if n := len(current); n > 0 && r3.Norm(r3.Sub(r.ca, current[n-1].ca)) > maxPeptideBond {
				peptides = append(peptides, current)
				current = nil
			}
			current = append(current, r)
		}
		if len(current) > 0 {
			peptides = append(peptides, current)
		}
	}
	return peptides
}

// pseudoCB approximates the CA→CB direction of ca2 from its neighbours.
func pseudoCB(ca1, ca2, ca3 r3.Vec) r3.Vec {
	d1 := r3.Unit(r3.Sub(ca2, ca1))
	d3 := r3.Unit(r3.Sub(ca2, ca3))
	return r3.Unit(r3.Add(d1, d3))
}

func cbAngle(r *ppResidue, pcb r3.Vec) float64 {
	var cbDir r3.Vec
	if cb, ok := r.residue.Atom("CB"); ok {
		cbDir = r3.Sub(cb.Coord, r.ca)
	} else if r.residue.Name == "GLY" {
		v, ok := glycineCB(r.residue, r.ca)
		if !ok {
			return math.NaN()
		}
		cbDir = v
	} else {
		return math.NaN()
	}
	return angle(cbDir, pcb)
}

// glycineCB places a virtual CB by rotating the CA→N vector -120° around
// the CA→C axis.
func glycineCB(res *structure.Residue, ca r3.Vec) (r3.Vec, bool) {
	n, okN := res.Atom("N")
	c, okC := res.Atom("C")
	if !okN || !okC {
		return r3.Vec{}, false
	}
	rot := r3.NewRotation(-2*math.Pi/3, r3.Sub(c.Coord, ca))
	return rot.Rotate(r3.Sub(n.Coord, ca)), true
}

func angle(p, q r3.Vec) float64 {
	cos := r3.Cos(p, q)
	return math.Acos(math.Max(-1, math.Min(1, cos)))
}
