package fabric

// testLink is a no-op Link used across this package's unit tests.
type testLink struct{ reliable bool }

func (l *testLink) SendBatch(batch []Envelope) bool { return true }
func (l *testLink) Close() error                    { return nil }
func (l *testLink) IsReliable() bool                { return l.reliable }
func (l *testLink) SupportsSHM() bool                { return false }

func newTestFace(id uint64) *Face {
	return NewFace(id, NewZID(), FaceRolePeer, id, &testLink{reliable: true}, nil, TxSequential)
}

// permissiveHat allows every egress and ignores face lifecycle
// notifications, for tests that only care about route computation.
type permissiveHat struct{}

func (permissiveHat) Role() FaceRole                          { return FaceRolePeer }
func (permissiveHat) AllowEgress(*Face, *ResourceNode) bool    { return true }
func (permissiveHat) NewFace(*Face)                            {}
func (permissiveHat) DropFace(*Face)                           {}
