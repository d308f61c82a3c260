package artifacts

import (
	"sync"
	"testing"

	qt "github.com/frankban/quicktest"
	"go.vocdoni.io/guardians/types"
)

func TestDisclosureToggle(t *testing.T) {
	c := qt.New(t)
	d := NewDisclosure()
	c.Assert(d.IsExpanded("g1", types.PublicKey), qt.IsFalse)

	c.Assert(d.Toggle("g1", types.PublicKey), qt.IsTrue)
	c.Assert(d.IsExpanded("g1", types.PublicKey), qt.IsTrue)
	c.Assert(d.IsExpanded("g1", types.TallyShare), qt.IsFalse)
	c.Assert(d.IsExpanded("g2", types.PublicKey), qt.IsFalse)

	c.Assert(d.Toggle("g1", types.PublicKey), qt.IsFalse)
	c.Assert(d.IsExpanded("g1", types.PublicKey), qt.IsFalse)
	c.Assert(d.Len(), qt.Equals, 1)

	d.Toggle("g2", types.KeyBackup)
	d.Reset()
	c.Assert(d.Len(), qt.Equals, 0)
	c.Assert(d.IsExpanded("g2", types.KeyBackup), qt.IsFalse)
}

func TestDisclosureConcurrentToggle(t *testing.T) {
	d := NewDisclosure()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.Toggle("g1", types.TallyShare)
			d.IsExpanded("g1", types.TallyShare)
		}()
	}
	wg.Wait()
	// an even number of toggles leaves the field collapsed
	qt.Assert(t, d.IsExpanded("g1", types.TallyShare), qt.IsFalse)
}
