package errs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetZeroIsNoOp(t *testing.T) {
	m := NewManager(SolverMessage)
	m.Set(ErrInpOpen)
	m.Set(0)
	assert.Equal(t, ErrInpOpen, m.Code())
}

func TestCheckAndClear(t *testing.T) {
	m := NewManager(SolverMessage)
	assert.Equal(t, "", m.Check())
	m.Set(ErrOutfileNoResults)
	assert.Contains(t, m.Check(), "436")
	m.Clear()
	assert.Equal(t, 0, m.Code())
	assert.Equal(t, "", m.Check())
}

func TestSeparateTables(t *testing.T) {
	solver := NewManager(SolverMessage)
	reader := NewManager(OutfileMessage)
	solver.Set(ErrOutfileMagic)
	reader.Set(ErrOutfileMagic)
	assert.NotEqual(t, solver.Check(), reader.Check())
	assert.Contains(t, solver.Check(), "435")
	assert.Contains(t, reader.Check(), "435")
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, OK, CodeOf(nil))
	assert.Equal(t, ErrAPINotOpen, CodeOf(New(ErrAPINotOpen)))
	assert.Equal(t, ErrUnspecified, CodeOf(errors.New("anything")))
}
