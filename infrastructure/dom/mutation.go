package dom

import "ai_registry/domain/interfaces"

var _ interfaces.MutationSource = (*Document)(nil)

// Observe registers fn for mutation batches on the whole document subtree.
func (d *Document) Observe(fn func([]interfaces.MutationRecord)) (stop func()) {
	d.obsMu.Lock()
	d.nextObs++
	id := d.nextObs
	d.observers = append(d.observers, observer{id: id, fn: fn})
	d.obsMu.Unlock()

	return func() {
		d.obsMu.Lock()
		defer d.obsMu.Unlock()
		for i, o := range d.observers {
			if o.id == id {
				d.observers = append(d.observers[:i], d.observers[i+1:]...)
				return
			}
		}
	}
}

// Batch runs fn and delivers every mutation it causes as a single batch,
// the way a MutationObserver callback receives all records of one task.
func (d *Document) Batch(fn func()) {
	d.obsMu.Lock()
	d.batchDepth++
	d.obsMu.Unlock()

	defer func() {
		d.obsMu.Lock()
		d.batchDepth--
		var records []interfaces.MutationRecord
		if d.batchDepth == 0 {
			records, d.batched = d.batched, nil
		}
		fns := d.observerFuncs()
		d.obsMu.Unlock()

		if len(records) > 0 {
			for _, f := range fns {
				f(records)
			}
		}
	}()
	fn()
}

func (d *Document) emit(rec interfaces.MutationRecord) {
	d.obsMu.Lock()
	if d.batchDepth > 0 {
		d.batched = append(d.batched, rec)
		d.obsMu.Unlock()
		return
	}
	fns := d.observerFuncs()
	d.obsMu.Unlock()

	for _, f := range fns {
		f([]interfaces.MutationRecord{rec})
	}
}

// observerFuncs copies the current observers. Caller holds obsMu.
func (d *Document) observerFuncs() []func([]interfaces.MutationRecord) {
	fns := make([]func([]interfaces.MutationRecord), 0, len(d.observers))
	for _, o := range d.observers {
		fns = append(fns, o.fn)
	}
	return fns
}
