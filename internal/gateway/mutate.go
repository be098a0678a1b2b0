package gateway

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/liveforge/dmcap/internal/catalog"
	"github.com/liveforge/dmcap/internal/signalbus"
)

// Mutator applies the two admin-only catalog mutations: issuing or
// revoking a streamer's token, and forwarding the same decision to the
// data-center process so its capture set stays in sync. The backend
// never blocks a request on the data-center's reply; the signal is
// fire-and-forget from the gateway's perspective, while the tool
// separately polls for acknowledgements on its own socket.
type Mutator struct {
	Roster           *catalog.Roster
	DataCenterClient *signalbus.Client
	Log              logrus.FieldLogger
}

// AddLiver issues uid a token and notifies the data-center to start
// capturing it.
func (m *Mutator) AddLiver(ctx context.Context, uid uint64) (catalog.AddResult, error) {
	result, err := m.Roster.AddStreamer(uid)
	if err != nil {
		return catalog.AddResult{}, err
	}
	m.notifyDataCenter(ctx, signalbus.DataCenterAddLiver, uid)
	return result, nil
}

// DeleteLiver revokes uid's token and notifies the data-center to stop
// capturing it.
func (m *Mutator) DeleteLiver(ctx context.Context, uid uint64) (catalog.RemoveResult, error) {
	result, err := m.Roster.RemoveStreamer(uid)
	if err != nil {
		return catalog.RemoveResult{}, err
	}
	m.notifyDataCenter(ctx, signalbus.DataCenterDeleteLiver, uid)
	return result, nil
}

func (m *Mutator) notifyDataCenter(ctx context.Context, kind signalbus.DataCenterMessageKind, uid uint64) {
	msg := signalbus.DataCenterMessage{Kind: kind, UID: uid}
	if err := m.DataCenterClient.Send(ctx, msg); err != nil {
		m.Log.WithError(err).WithField("uid", uid).Warn("failed to notify data center of catalog change")
	}
}
