package stream

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestDecodeState(t *testing.T) {
	frame := `{"type":"state","payload":{"nodes":[{"id":"n1","name":"node-1","status":"Ready",
		"metrics":{"usage":500,"requests":0,"limits":0,"capacity":1000},
		"pods":[{"id":"p1","name":"pod-a","namespace":"default","status":"running","node":"n1",
		"metrics":{"CPU":{"usage":100,"requests":200,"limits":200,"capacity":0},"Memory":{"usage":50,"requests":0,"limits":0,"capacity":0}}}]}]}}`

	snap, ok, err := Decode([]byte(frame))
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, snap.Nodes, 1)
	require.Equal(t, int64(1000), snap.Nodes[0].Metrics.Capacity)
	require.Len(t, snap.Nodes[0].Pods, 1)
	require.Equal(t, int64(200), snap.Nodes[0].Pods[0].Metrics.CPU.Requests)
}

func TestDecodeIgnoresUnknownTypes(t *testing.T) {
	for _, frame := range []string{
		`{"type":"metrics","payload":{"whatever":1}}`,
		`{"payload":{"nodes":[]}}`,
		`{}`,
	} {
		_, ok, err := Decode([]byte(frame))
		require.NoError(t, err, frame)
		require.False(t, ok, frame)
	}
}

func TestDecodeErrors(t *testing.T) {
	cases := map[string]string{
		"not json":        `state!`,
		"not an object":   `[1,2,3]`,
		"bad type field":  `{"type":7}`,
		"missing payload": `{"type":"state"}`,
		"null payload":    `{"type":"state","payload":null}`,
		"schema mismatch": `{"type":"state","payload":{"nodes":"n1"}}`,
	}
	for name, frame := range cases {
		t.Run(name, func(t *testing.T) {
			_, ok, err := Decode([]byte(frame))
			require.False(t, ok)
			var de *DecodeError
			require.ErrorAs(t, err, &de)
			require.NotNil(t, errors.Cause(err))
		})
	}
}

func TestDecodeRejectsBadRecordsAlone(t *testing.T) {
	for _, usage := range []string{`"abc"`, `100.5`, `1e30`} {
		t.Run(usage, func(t *testing.T) {
			frame := `{"type":"state","payload":{"nodes":[
				{"id":"n1","name":"node-1","status":"Ready","metrics":{"usage":500,"capacity":1000},"pods":[]},
				{"id":"n2","name":"node-2","status":"Ready","metrics":{"usage":` + usage + `,"capacity":1000},"pods":[]}]}}`

			snap, ok, err := Decode([]byte(frame))
			require.NoError(t, err)
			require.True(t, ok)
			require.Len(t, snap.Nodes, 1)
			require.Equal(t, "n1", snap.Nodes[0].ID)
			require.Len(t, snap.Rejected, 1)
			rej := snap.Rejected[0]
			require.Equal(t, "node", rej.Kind)
			require.Equal(t, "n2", rej.ID)
			require.Contains(t, rej.Field, "usage")
		})
	}
}

func TestDecodeRejectsBadPodAlone(t *testing.T) {
	frame := `{"type":"state","payload":{"nodes":[{"id":"n1","name":"node-1","status":"Ready","pods":[
		{"id":"p1","name":"pod-a","status":"running"},
		{"id":"p2","name":"pod-b","status":"running","metrics":{"cpu":{"limits":"lots"}}}]}]}}`

	snap, ok, err := Decode([]byte(frame))
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, snap.Nodes, 1)
	require.Len(t, snap.Nodes[0].Pods, 1)
	require.Equal(t, "p1", snap.Nodes[0].Pods[0].ID)
	require.Len(t, snap.Rejected, 1)
	require.Equal(t, "pod", snap.Rejected[0].Kind)
	require.Equal(t, "p2", snap.Rejected[0].ID)
}

func TestDecodeKeepsEmptyAndMissingLists(t *testing.T) {
	snap, ok, err := Decode([]byte(`{"type":"state","payload":{"nodes":[{"id":"n1","pods":[]},{"id":"n2"}]}}`))
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, snap.Nodes[0].Pods)
	require.Empty(t, snap.Nodes[0].Pods)
	require.Nil(t, snap.Nodes[1].Pods)
	require.Nil(t, snap.Rejected)

	snap, ok, err = Decode([]byte(`{"type":"state","payload":{}}`))
	require.NoError(t, err)
	require.True(t, ok)
	require.Nil(t, snap.Nodes)
}
