// Package pipeline turns PepBDB corpus entries into residue tables: it
// filters the corpus, enriches each complex with contacts, residue
// properties, structural annotations and evolutionary profiles, and
// flattens the result into one table per molecule.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/inodb/peppi/internal/aaindex"
	"github.com/inodb/peppi/internal/annotate"
	"github.com/inodb/peppi/internal/config"
	"github.com/inodb/peppi/internal/contacts"
	"github.com/inodb/peppi/internal/dataset"
	"github.com/inodb/peppi/internal/features"
	"github.com/inodb/peppi/internal/pssm"
	"github.com/inodb/peppi/internal/structure"
)

// Labeler finds the interface residues of a complex.
type Labeler interface {
	Label(ctx context.Context, peptidePath, proteinPath string) (contacts.Binding, error)
}

// StructureAnnotator computes per-residue structural annotations. It
// reports failures through the result instead of an error.
type StructureAnnotator interface {
	Annotate(ctx context.Context, path string) *annotate.Result
}

// ProfileBuilder computes the evolutionary profile of a sequence.
type ProfileBuilder interface {
	Build(ctx context.Context, seq string) (*pssm.Profile, error)
}

// Options configures corpus selection and parallelism.
type Options struct {
	PepBDB       string // root holding one directory per complex
	Filter       dataset.FilterOptions
	RequireLocal bool // drop entries without a complex directory under PepBDB
	Workers      int
}

// OptionsFromConfig extracts pipeline options from c.
func OptionsFromConfig(c *config.Config) Options {
	return Options{
		PepBDB: c.Paths.PepBDB,
		Filter: dataset.FilterOptions{
			MaxResolution:        c.Filter.MaxResolution,
			MinPeptideLength:     c.Filter.MinPeptideLength,
			ExcludeMolecularType: c.Filter.ExcludeMolecularType,
		},
		RequireLocal: c.Filter.RequireLocal,
		Workers:      c.Workers,
	}
}

// Pipeline builds residue tables from corpus entries.
type Pipeline struct {
	opts      Options
	labeler   Labeler
	annotator StructureAnnotator
	profiles  ProfileBuilder
	logger    *zap.Logger
}

// New creates a pipeline using the given collaborators.
func New(opts Options, l Labeler, a StructureAnnotator, p ProfileBuilder) *Pipeline {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Pipeline{
		opts:      opts,
		labeler:   l,
		annotator: a,
		profiles:  p,
		logger:    zap.NewNop(),
	}
}

// SetLogger sets the logger for progress and failure messages.
func (p *Pipeline) SetLogger(l *zap.Logger) {
	p.logger = l
}

// Stats counts complexes and molecules at each step of a run.
type Stats struct {
	Entries          int // corpus entries read
	Selected         int // entries passing the corpus filters
	SequenceFailures int // complexes whose structures could not be read
	SequenceFiltered int // complexes with non-standard or duplicate sequences
	Enriched         int // complexes sent through enrichment
	FailedComplexes  int // enriched complexes with at least one failure
	Gate             dataset.GateStats
	TableFailures    int
	Tables           int
}

// Result is the outcome of a run.
type Result struct {
	// Complexes holds every complex that reached sequence extraction, in
	// corpus order, with its final status.
	Complexes []*dataset.Complex
	// Tables holds one table per surviving molecule: peptides first, then
	// proteins.
	Tables []*dataset.Table
	Stats  Stats
}

// Rows concatenates the tables and drops residues with a missing feature.
// The second return value counts the dropped residues.
func (r *Result) Rows() ([]dataset.Row, int) {
	return dataset.DropNA(dataset.Concat(r.Tables))
}

// Run processes entries. Per-complex failures are recorded in the complex
// status and never abort the run; an error is returned only when the
// corpus cannot be read or ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context, entries []dataset.Entry) (*Result, error) {
	start := time.Now()
	res := &Result{}
	res.Stats.Entries = len(entries)

	selected := dataset.Filter(entries, p.opts.Filter)
	if p.opts.RequireLocal {
		ids, err := dataset.LocalIDs(p.opts.PepBDB)
		if err != nil {
			return nil, err
		}
		selected = dataset.FilterLocal(selected, ids)
	}
	res.Stats.Selected = len(selected)
	p.logger.Info("corpus filtered",
		zap.Int("entries", len(entries)),
		zap.Int("selected", len(selected)))

	var readable []*dataset.Complex
	for _, e := range selected {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c := dataset.NewComplex(e, p.opts.PepBDB)
		res.Complexes = append(res.Complexes, c)
		if err := readSequences(c); err != nil {
			p.fail(c, dataset.StageSequence, 0, err)
			res.Stats.SequenceFailures++
			continue
		}
		readable = append(readable, c)
	}

	complexes := dataset.FilterSequences(readable)
	res.Stats.SequenceFiltered = len(readable) - len(complexes)
	res.Stats.Enriched = len(complexes)
	p.logger.Info("sequences extracted",
		zap.Int("complexes", len(complexes)),
		zap.Int("unreadable", res.Stats.SequenceFailures),
		zap.Int("filtered", res.Stats.SequenceFiltered))

	done := 0
	results := p.ParallelEnrich(ctx, feed(ctx, complexes), p.opts.Workers)
	err := OrderedCollect(results, func(r WorkResult) error {
		if r.Err != nil {
			return r.Err
		}
		done++
		if !r.Complex.Status.OK() {
			res.Stats.FailedComplexes++
		}
		p.logger.Info("complex enriched",
			zap.String("complex", r.Complex.Entry.ID()),
			zap.String("progress", fmt.Sprintf("%d/%d", done, len(complexes))),
			zap.Stringer("status", r.Complex.Status))
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	molecules, gs := dataset.Gate(dataset.Reduce(complexes))
	res.Stats.Gate = gs
	res.Tables = p.tabulate(molecules, &res.Stats)

	p.logger.Info("tables built",
		zap.Int("tables", len(res.Tables)),
		zap.Int("gate_failed", gs.Failed),
		zap.Int("gate_incomplete_profile", gs.IncompleteProfile),
		zap.Int("table_failures", res.Stats.TableFailures),
		zap.Duration("elapsed", time.Since(start)))
	return res, nil
}

// tabulate builds one table per molecule. A molecule that cannot be
// tabulated is recorded in its status and skipped.
func (p *Pipeline) tabulate(molecules []*dataset.Molecule, st *Stats) []*dataset.Table {
	var tables []*dataset.Table
	for _, m := range molecules {
		t, err := dataset.Tabularize(m)
		if err != nil {
			m.Status.Fail(dataset.StageTable, m.Kind, err)
			p.logger.Warn("molecule skipped",
				zap.String("complex", m.Complex),
				zap.Stringer("molecule", m.Kind),
				zap.Error(err))
			st.TableFailures++
			continue
		}
		tables = append(tables, t)
	}
	st.Tables = len(tables)
	return tables
}

// readSequences extracts the residue sequence of both structure files.
func readSequences(c *dataset.Complex) error {
	for _, m := range c.Molecules() {
		seq, err := structure.ExtractSequenceFile(m.Path)
		if err != nil {
			return fmt.Errorf("%s: %w", m.Kind, err)
		}
		if seq.Len() == 0 {
			return fmt.Errorf("%s: no residues in %s", m.Kind, m.Path)
		}
		m.Sequence = seq.Letters
		m.Keys = seq.Keys
	}
	return nil
}

// Enrich attaches binding indices, residue properties, structural
// annotations and profiles to both molecules of c. Stage failures are
// recorded in c.Status; the remaining stages of a failed molecule are
// skipped. The returned error is non-nil only when ctx is cancelled.
func (p *Pipeline) Enrich(ctx context.Context, c *dataset.Complex) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b, err := p.labeler.Label(ctx, c.Peptide.Path, c.Protein.Path)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.fail(c, dataset.StageContacts, 0, err)
		return nil
	}
	p.attachBinding(c, b)

	for _, m := range c.Molecules() {
		stage, err := p.enrichMolecule(ctx, m)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			p.fail(c, stage, m.Kind, err)
		}
	}
	return nil
}

func (p *Pipeline) attachBinding(c *dataset.Complex, b contacts.Binding) {
	var pepMissing, protMissing int
	c.Peptide.BindingIndices, pepMissing = b.PeptidePositions(c.Peptide.Keys)
	c.Protein.BindingIndices, protMissing = b.ProteinPositions(c.Protein.Keys)
	if pepMissing > 0 || protMissing > 0 {
		p.logger.Debug("contacts outside extracted sequence",
			zap.String("complex", c.Entry.ID()),
			zap.Int("peptide", pepMissing),
			zap.Int("protein", protMissing))
	}
}

func (p *Pipeline) enrichMolecule(ctx context.Context, m *dataset.Molecule) (dataset.Stage, error) {
	props := make([][]float64, len(aaindex.Properties))
	for i, prop := range aaindex.Properties {
		v, err := aaindex.FeatureVector(m.Sequence, prop)
		if err != nil {
			return dataset.StageProperties, err
		}
		props[i] = v
	}
	m.Properties = props

	ann := p.annotator.Annotate(ctx, m.Path)
	if ann.Null() {
		return dataset.StageAnnotation, ann.Err
	}
	if err := alignAnnotation(m, ann); err != nil {
		return dataset.StageAnnotation, err
	}

	profile, err := p.profiles.Build(ctx, m.Sequence)
	if err != nil {
		return dataset.StageProfile, err
	}
	m.PSSM = profile
	return "", nil
}

// alignAnnotation places the annotation series on the molecule's residues.
// Half-sphere exposure is not reported for chain ends, so those positions
// repeat the nearest reported value, missing or not. Secondary structure
// must cover every residue.
func alignAnnotation(m *dataset.Molecule, ann *annotate.Result) error {
	if miss := features.Missing(m.Keys, ann.DSSPKeys); len(miss) > 0 {
		return fmt.Errorf("secondary structure missing for %d of %d residues, first at %s",
			len(miss), m.Len(), m.Keys[miss[0]])
	}

	hse := func(values []float64) []float64 {
		return features.ExtendChainTerminals(m.Keys, ann.HSEKeys, values)
	}
	m.HSEUp = hse(ann.HSEUp)
	m.HSEDown = hse(ann.HSEDown)
	m.PseudoAngle = hse(ann.PseudoAngle)

	m.ASA, _ = features.AlignByKey(m.Keys, ann.DSSPKeys, ann.ASA)
	m.Phi, _ = features.AlignByKey(m.Keys, ann.DSSPKeys, ann.Phi)
	m.Psi, _ = features.AlignByKey(m.Keys, ann.DSSPKeys, ann.Psi)
	m.SS, _ = features.AlignSymbolsByKey(m.Keys, ann.DSSPKeys, ann.SS)

	enc, err := features.OneHot(m.SS)
	if err != nil {
		return err
	}
	m.SSOneHot = enc
	return nil
}

func (p *Pipeline) fail(c *dataset.Complex, stage dataset.Stage, kind dataset.Kind, err error) {
	c.Status.Fail(stage, kind, err)
	p.logger.Warn("stage failed",
		zap.String("complex", c.Entry.ID()),
		zap.String("stage", string(stage)),
		zap.Stringer("molecule", kind),
		zap.Error(err))
}
