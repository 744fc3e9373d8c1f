package registry

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type lineWriter struct {
	writes []string
}

func (w *lineWriter) Write(p []byte) int {
	w.writes = append(w.writes, string(p))
	return len(p)
}

func TestRegister(t *testing.T) {
	var r Registry
	require.True(t, r.Register(0x1000, "LED"))
	require.True(t, r.Register(0x2000, "UART"))
	require.True(t, r.Register(0x1000, "LED"))
	require.Equal(t, 3, r.Len())

	entries := r.Entries()
	require.Len(t, entries, 3)
	require.Equal(t, uint32(0x1000), entries[0].Handle)
	require.Equal(t, "LED", entries[0].Name())
	require.Equal(t, "UART", entries[1].Name())
	require.Equal(t, "LED", entries[2].Name())

	entries[0].Handle = 0
	require.Equal(t, uint32(0x1000), r.Entries()[0].Handle)
}

func TestRegisterTruncatesName(t *testing.T) {
	var r Registry
	require.True(t, r.Register(1, "SensorAcquisitionTask"))
	require.True(t, r.Register(2, "ExactlyFifteen!"))
	require.True(t, r.Register(3, ""))
	entries := r.Entries()
	require.Equal(t, "SensorAcquisiti", entries[0].Name())
	require.Len(t, entries[0].Name(), MaxNameLen)
	require.Equal(t, "ExactlyFifteen!", entries[1].Name())
	require.Equal(t, "", entries[2].Name())
}

func TestRegisterCapacity(t *testing.T) {
	var r Registry
	for i := 0; i < Capacity+8; i++ {
		stored := r.Register(uint32(i), fmt.Sprintf("T%d", i))
		require.Equal(t, i < Capacity, stored)
	}
	require.Equal(t, Capacity, r.Len())
	for i, e := range r.Entries() {
		require.Equal(t, uint32(i), e.Handle)
		require.Equal(t, fmt.Sprintf("T%d", i), e.Name())
	}

	r.Reset()
	require.Equal(t, 0, r.Len())
	require.Empty(t, r.Entries())
	require.True(t, r.Register(7, "again"))
}

func TestEmitAll(t *testing.T) {
	var r Registry
	r.Register(4096, "LED")
	r.Register(0xffffffff, "SensorAcquisitionTask")

	var w lineWriter
	r.EmitAll(&w)
	require.Equal(t, []string{
		"TASK_REGISTRY_START\n",
		"TASK:4096:LED\n",
		"TASK:4294967295:SensorAcquisiti\n",
		"TASK_REGISTRY_END\n",
	}, w.writes)
}

func TestEmitAllEmpty(t *testing.T) {
	var r Registry
	var w lineWriter
	r.EmitAll(&w)
	require.Equal(t, BeginMarker+EndMarker, strings.Join(w.writes, ""))
}
