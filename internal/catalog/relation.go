package catalog

import (
	"errors"
	"fmt"

	"github.com/mesh-intelligence/fieldbase/internal/metrics"
	"github.com/mesh-intelligence/fieldbase/internal/sqlite"
	"github.com/mesh-intelligence/fieldbase/pkg/types"
)

// MirrorSuffix is appended to the label of a relation field to name the
// mirror created for it.
const MirrorSuffix = " (Reverse)"

// relationRequest is the pairing a caller asked for. An empty request is
// an unpaired relation onto the field's own table.
type relationRequest struct {
	fieldID string // pair with this existing relation field
	tableID string // create or find a mirror on this table
}

func (r relationRequest) self() bool { return r.fieldID == "" && r.tableID == "" }

// requestedTarget reads the pairing requested by a caller supplied config.
// A related field equal to the field itself asks for an unpaired relation.
func requestedTarget(f *types.Field, rc *types.RelationConfig) relationRequest {
	if rc.RelatedFieldID == f.FieldID {
		return relationRequest{}
	}
	return relationRequest{fieldID: rc.RelatedFieldID, tableID: rc.RelatedTableID}
}

// currentTarget is the request that reproduces a stored pairing.
func currentTarget(f *types.Field, rc *types.RelationConfig) relationRequest {
	if rc.Unpaired() {
		return relationRequest{}
	}
	return relationRequest{fieldID: rc.RelatedFieldID}
}

// SyncRelation re-runs mirror maintenance for a relation field using its
// stored pairing. It is idempotent.
func (c *Catalog) SyncRelation(tx *sqlite.Tx, fieldID string) (*types.RelationConfig, error) {
	f, err := tx.GetField(fieldID)
	if err != nil {
		return nil, err
	}
	if f.FieldType != types.FieldTypeRelation {
		return nil, types.Validationf("field_type", "field %s is a %s field, not a relation", fieldID, f.FieldType)
	}
	cfg, err := c.GetConfig(tx, f)
	if err != nil {
		return nil, err
	}
	rc := cfg.(*types.RelationConfig)
	if err := c.ensureRelation(tx, f, rc, currentTarget(f, rc)); err != nil {
		return nil, err
	}
	return rc, nil
}

// ensureRelation brings the stored config rc of f to the requested pairing.
// Every path either finds the pair already in place and stops, or creates
// or adopts exactly one partner, so repeated calls converge.
func (c *Catalog) ensureRelation(tx *sqlite.Tx, f *types.Field, rc *types.RelationConfig, req relationRequest) error {
	switch {
	case req.fieldID != "":
		return c.pairWith(tx, f, rc, req)
	case req.tableID != "":
		return c.mirrorInto(tx, f, rc, req.tableID)
	}
	if rc.Unpaired() {
		return nil
	}
	return c.unpair(tx, f, rc)
}

// pairWith makes f and the existing relation field req.fieldID a pair.
func (c *Catalog) pairWith(tx *sqlite.Tx, f *types.Field, rc *types.RelationConfig, req relationRequest) error {
	p, err := tx.GetField(req.fieldID)
	if err != nil {
		return err
	}
	if p.FieldType != types.FieldTypeRelation {
		return types.Validationf("related_field", "field %s is not a relation field", p.FieldID)
	}
	if req.tableID != "" && req.tableID != p.TableID {
		return types.Validationf("related_database", "field %s does not belong to table %s", p.FieldID, req.tableID)
	}
	pcfg, err := c.GetConfig(tx, p)
	if err != nil {
		return err
	}
	pc := pcfg.(*types.RelationConfig)
	if pc.RelatedFieldID != f.FieldID && !pc.Unpaired() {
		return types.Validationf("related_field", "field %s is already paired with field %s", p.FieldID, pc.RelatedFieldID)
	}
	if err := c.releasePartners(tx, f, p.FieldID); err != nil {
		return err
	}
	if pc.Unpaired() {
		pc.RelatedFieldID = f.FieldID
		pc.RelatedTableID = f.TableID
		if err := tx.UpdateConfig(pc); err != nil {
			return err
		}
	}
	if rc.RelatedFieldID == p.FieldID && rc.RelatedTableID == p.TableID {
		return nil
	}
	rc.RelatedFieldID = p.FieldID
	rc.RelatedTableID = p.TableID
	if err := tx.UpdateConfig(rc); err != nil {
		return err
	}
	c.log.Infow("paired relation fields", "field", f.FieldID, "related_field", p.FieldID)
	return nil
}

// mirrorInto pairs f with a relation field on tableID. An existing field
// there that already points back at f is adopted; otherwise a mirror
// labelled "<label> (Reverse)" is created.
func (c *Catalog) mirrorInto(tx *sqlite.Tx, f *types.Field, rc *types.RelationConfig, tableID string) error {
	if !rc.Unpaired() {
		m, err := tx.GetField(rc.RelatedFieldID)
		if err == nil && m.TableID == tableID {
			return nil
		}
		if err != nil && !errors.Is(err, types.ErrNotFound) {
			return err
		}
		if err := c.unpair(tx, f, rc); err != nil {
			return err
		}
	}
	if _, err := tx.GetTable(tableID); err != nil {
		return err
	}

	back, err := tx.RelationsPointingAt(f.FieldID)
	if err != nil {
		return err
	}
	for _, b := range back {
		bf, err := tx.GetField(b.FieldID)
		if err != nil {
			return err
		}
		if bf.TableID == tableID {
			rc.RelatedFieldID = bf.FieldID
			rc.RelatedTableID = tableID
			return tx.UpdateConfig(rc)
		}
	}

	m := &types.Field{TableID: tableID, Label: f.Label + MirrorSuffix, FieldType: types.FieldTypeRelation}
	if err := tx.InsertField(m); err != nil {
		return err
	}
	mc := &types.RelationConfig{
		ConfigBase:     types.ConfigBase{FieldID: m.FieldID},
		SourceFieldID:  m.FieldID,
		RelatedFieldID: f.FieldID,
		RelatedTableID: f.TableID,
	}
	if err := tx.InsertConfig(mc); err != nil {
		return fmt.Errorf("creating mirror of %s: %w", f.FieldID, err)
	}
	m.ConfigID = mc.ConfigID
	if err := tx.UpdateField(m); err != nil {
		return err
	}

	rc.RelatedFieldID = m.FieldID
	rc.RelatedTableID = tableID
	if err := tx.UpdateConfig(rc); err != nil {
		return err
	}
	metrics.MirrorsCreated.Inc()
	c.log.Infow("created mirror field", "field", f.FieldID, "mirror", m.FieldID, "table", tableID)
	return nil
}

// unpair removes the partners of f and resets rc to an unpaired relation.
func (c *Catalog) unpair(tx *sqlite.Tx, f *types.Field, rc *types.RelationConfig) error {
	if err := c.releasePartners(tx, f, ""); err != nil {
		return err
	}
	rc.RelatedFieldID = f.FieldID
	rc.RelatedTableID = f.TableID
	return tx.UpdateConfig(rc)
}

// partnersOf returns the fields paired with f: its related field and any
// field whose config points at f.
func (c *Catalog) partnersOf(tx *sqlite.Tx, f *types.Field) ([]*types.Field, error) {
	ids := []string{}
	cfg, err := tx.GetConfig(f.FieldID)
	if err != nil && !errors.Is(err, types.ErrNotFound) {
		return nil, err
	}
	if rc, ok := cfg.(*types.RelationConfig); ok && !rc.Unpaired() {
		ids = append(ids, rc.RelatedFieldID)
	}
	back, err := tx.RelationsPointingAt(f.FieldID)
	if err != nil {
		return nil, err
	}
	for _, b := range back {
		ids = append(ids, b.FieldID)
	}

	seen := map[string]bool{f.FieldID: true}
	var out []*types.Field
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		p, err := tx.GetField(id)
		if errors.Is(err, types.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// removePartners deletes every partner of f. A pair lives and dies
// together.
func (c *Catalog) removePartners(tx *sqlite.Tx, f *types.Field) error {
	return c.releasePartners(tx, f, "")
}

// releasePartners deletes the partners of f other than keep.
func (c *Catalog) releasePartners(tx *sqlite.Tx, f *types.Field, keep string) error {
	partners, err := c.partnersOf(tx, f)
	if err != nil {
		return err
	}
	for _, p := range partners {
		if p.FieldID == keep {
			continue
		}
		if err := c.removeField(tx, p); err != nil {
			return err
		}
		c.log.Infow("removed relation partner", "field", f.FieldID, "partner", p.FieldID)
	}
	return nil
}
