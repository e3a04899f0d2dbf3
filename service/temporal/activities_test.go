package temporal

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/brojonat/hopscotch/service/trade"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Client must satisfy the Scheduler contract the rest of the system
// programs against.
var _ Scheduler = (*Client)(nil)

// MockHistoryEngine mocks the retrieval engine behind activities.
type MockHistoryEngine struct {
	mock.Mock
}

func (m *MockHistoryEngine) GetTradeHistory(ctx context.Context, wallet string) ([]*trade.FormattedTrade, error) {
	args := m.Called(ctx, wallet)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*trade.FormattedTrade), args.Error(1)
}

func TestActivities_FetchTradeHistory(t *testing.T) {
	testWallet := "11111111111111111111111111111111"

	tests := []struct {
		name          string
		input         FetchTradeHistoryInput
		setupMock     func(*MockHistoryEngine)
		expectedCount int
		expectedError bool
	}{
		{
			name:  "successful fetch with trades",
			input: FetchTradeHistoryInput{WalletAddress: testWallet},
			setupMock: func(m *MockHistoryEngine) {
				trades := []*trade.FormattedTrade{
					{Signature: "sig1"},
					{Signature: "sig2"},
				}
				m.On("GetTradeHistory", mock.Anything, testWallet).
					Return(trades, nil)
			},
			expectedCount: 2,
			expectedError: false,
		},
		{
			name:  "successful fetch with no trades",
			input: FetchTradeHistoryInput{WalletAddress: testWallet},
			setupMock: func(m *MockHistoryEngine) {
				m.On("GetTradeHistory", mock.Anything, testWallet).
					Return([]*trade.FormattedTrade{}, nil)
			},
			expectedCount: 0,
			expectedError: false,
		},
		{
			name:  "engine returns an error",
			input: FetchTradeHistoryInput{WalletAddress: "invalid"},
			setupMock: func(m *MockHistoryEngine) {
				m.On("GetTradeHistory", mock.Anything, "invalid").
					Return(nil, errors.New("invalid wallet address"))
			},
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockEngine := new(MockHistoryEngine)
			tt.setupMock(mockEngine)

			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			activities := NewActivities(mockEngine, logger)

			result, err := activities.FetchTradeHistory(context.Background(), tt.input)

			if tt.expectedError {
				assert.Error(t, err)
				assert.Nil(t, result)
			} else {
				assert.NoError(t, err)
				require.NotNil(t, result)
				assert.Equal(t, tt.expectedCount, result.Trades)
			}

			mockEngine.AssertExpectations(t)
		})
	}
}
