package abridgedaemon

import (
	"context"
	"errors"
	"testing"

	"github.com/agda-tools/agda-bridge/src/abridge/controller/daemon/daemonmock"
	"github.com/agda-tools/agda-bridge/src/abridge/factory"
	"github.com/agda-tools/agda-bridge/src/abridge/internal/jsonrpcfx"
	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tally "github.com/uber-go/tally"
	"go.lsp.dev/jsonrpc2"
	"go.uber.org/mock/gomock"
)

// newMockReplier returns a Replier that passes through the error it was
// given, so handler results can be asserted via HandleReq's return value.
func newMockReplier() jsonrpc2.Replier {
	return func(ctx context.Context, result interface{}, err error) error {
		return err
	}
}

func TestNew(t *testing.T) {
	ctrl := gomock.NewController(t)

	c := daemonmock.NewMockController(ctrl)
	jsonrpcmod := jsonrpcfx.NewMockJSONRPCModule(ctrl)
	jsonrpcmod.EXPECT().RegisterConnectionManager(gomock.Any()).Return(nil)

	h := New(c, jsonrpcmod, tally.NewTestScope("", nil))
	assert.NotNil(t, h)
}

func TestNewConnection(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		id := factory.UUID()

		c := daemonmock.NewMockController(ctrl)
		c.EXPECT().InitSession(gomock.Any(), gomock.Any()).Return(id, nil)

		mgr := jsonRPCConnectionManager{ctrl: c, stats: tally.NewTestScope("", nil)}
		var conn jsonrpc2.Conn
		router, err := mgr.NewConnection(context.Background(), &conn)
		require.NoError(t, err)
		assert.Equal(t, id, router.UUID())
	})

	t.Run("init failure", func(t *testing.T) {
		ctrl := gomock.NewController(t)

		c := daemonmock.NewMockController(ctrl)
		c.EXPECT().InitSession(gomock.Any(), gomock.Any()).Return(uuid.Nil, errors.New("init failed"))

		mgr := jsonRPCConnectionManager{ctrl: c, stats: tally.NewTestScope("", nil)}
		var conn jsonrpc2.Conn
		_, err := mgr.NewConnection(context.Background(), &conn)
		assert.Error(t, err)
	})
}

func TestRemoveConnection(t *testing.T) {
	ctrl := gomock.NewController(t)
	id := factory.UUID()

	c := daemonmock.NewMockController(ctrl)
	c.EXPECT().EndSession(gomock.Any(), id).Return(nil)

	mgr := jsonRPCConnectionManager{ctrl: c, stats: tally.NewTestScope("", nil)}
	mgr.RemoveConnection(context.Background(), id)
}
