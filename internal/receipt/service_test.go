package receipt_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/offertory/internal/receipt"
)

func TestService_Create(t *testing.T) {
	activityID := uuid.New()
	amount := decimal.RequireFromString("75.00")

	type testCase struct {
		name       string
		params     receipt.CreateParams
		setupMock  func(m *receipt.MockRepository)
		wantStatus receipt.Status
		wantErr    error
	}

	tests := []testCase{
		{
			name: "DefaultsToSubmitted",
			params: receipt.CreateParams{
				ActivityID:  activityID,
				Extracted:   receipt.Extracted{Amount: &amount},
				ReceiptPath: "receipts/a.jpg",
			},
			setupMock: func(m *receipt.MockRepository) {
				m.EXPECT().GetActivity(gomock.Any(), activityID).Return(&receipt.Activity{ID: activityID}, nil)
				m.EXPECT().
					CreateReceipt(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, r *receipt.Receipt) error {
						r.ID = uuid.New()
						return nil
					})
			},
			wantStatus: receipt.StatusSubmitted,
		},
		{
			name: "ManualReviewAccepted",
			params: receipt.CreateParams{
				ActivityID: activityID,
				Status:     receipt.StatusManualReview,
			},
			setupMock: func(m *receipt.MockRepository) {
				m.EXPECT().GetActivity(gomock.Any(), activityID).Return(&receipt.Activity{ID: activityID}, nil)
				m.EXPECT().CreateReceipt(gomock.Any(), gomock.Any()).Return(nil)
			},
			wantStatus: receipt.StatusManualReview,
		},
		{
			name: "VerifiedRefused",
			params: receipt.CreateParams{
				ActivityID: activityID,
				Status:     receipt.StatusVerified,
			},
			wantErr: receipt.ErrInvalidTransition,
		},
		{
			name:   "UnknownActivity",
			params: receipt.CreateParams{ActivityID: activityID},
			setupMock: func(m *receipt.MockRepository) {
				m.EXPECT().GetActivity(gomock.Any(), activityID).Return(nil, receipt.ErrActivityNotFound)
			},
			wantErr: receipt.ErrActivityNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := receipt.NewMockRepository(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			svc := receipt.NewService(repo)
			got, err := svc.Create(context.Background(), tt.params)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Nil(t, got.LinkedTransactionID)
		})
	}
}

func TestService_Reject(t *testing.T) {
	id := uuid.New()

	type testCase struct {
		name      string
		current   receipt.Status
		repoErr   error
		wantErr   error
		expectSQL bool
	}

	tests := []testCase{
		{name: "FromPending", current: receipt.StatusPending, expectSQL: true},
		{name: "FromManualReview", current: receipt.StatusManualReview, expectSQL: true},
		{name: "Verified", current: receipt.StatusVerified, wantErr: receipt.ErrInvalidTransition},
		{name: "AlreadyRejected", current: receipt.StatusRejected, wantErr: receipt.ErrInvalidTransition},
		{
			name:      "LostRace",
			current:   receipt.StatusSubmitted,
			repoErr:   receipt.ErrInvalidTransition,
			wantErr:   receipt.ErrInvalidTransition,
			expectSQL: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := receipt.NewMockRepository(ctrl)
			repo.EXPECT().GetReceipt(gomock.Any(), id).Return(&receipt.Receipt{ID: id, Status: tt.current}, nil)

			if tt.expectSQL {
				repo.EXPECT().
					RejectReceipt(gomock.Any(), id, "wrong beneficiary", "staff@church", gomock.Any()).
					Return(tt.repoErr)
			}

			svc := receipt.NewService(repo)
			got, err := svc.Reject(context.Background(), id, "wrong beneficiary", "staff@church")

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, receipt.StatusRejected, got.Status)
			assert.Equal(t, "wrong beneficiary", got.VerificationNote)
		})
	}
}

func TestService_ListByActivity(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	activityID := uuid.New()
	repo := receipt.NewMockRepository(ctrl)
	repo.EXPECT().GetActivity(gomock.Any(), activityID).Return(&receipt.Activity{ID: activityID}, nil)
	repo.EXPECT().ListByActivity(gomock.Any(), activityID).Return(nil, errors.New("boom"))

	svc := receipt.NewService(repo)
	_, err := svc.ListByActivity(context.Background(), activityID)
	assert.Error(t, err)
}

func TestService_ListActivities(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	want := []*receipt.Activity{{ID: uuid.New(), Name: "Retiro"}}

	repo := receipt.NewMockRepository(ctrl)
	repo.EXPECT().ListActivities(gomock.Any()).Return(want, nil)

	got, err := receipt.NewService(repo).ListActivities(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestReceipt_Amount(t *testing.T) {
	extracted := decimal.RequireFromString("50.00")
	claimed := decimal.RequireFromString("55.00")

	r := receipt.Receipt{ClaimedAmount: &claimed, Extracted: receipt.Extracted{Amount: &extracted}}
	got, ok := r.Amount()
	require.True(t, ok)
	assert.True(t, extracted.Equal(got))

	r.Extracted.Amount = nil
	got, ok = r.Amount()
	require.True(t, ok)
	assert.True(t, claimed.Equal(got))

	r.ClaimedAmount = nil
	_, ok = r.Amount()
	assert.False(t, ok)
}

func TestReceipt_FraudRisk(t *testing.T) {
	r := receipt.Receipt{}
	assert.False(t, r.FraudRisk())

	r.Extracted.IsCorrectBeneficiary = new(false)
	assert.True(t, r.FraudRisk())

	r.Extracted.IsCorrectBeneficiary = new(true)
	assert.False(t, r.FraudRisk())
}

func TestStatus_Open(t *testing.T) {
	for _, s := range receipt.OpenStatuses() {
		assert.True(t, s.Open(), s)
	}

	assert.False(t, receipt.StatusVerified.Open())
	assert.False(t, receipt.StatusRejected.Open())
	assert.False(t, receipt.Status("archived").Valid())
	assert.True(t, receipt.StatusRejected.Valid())
}
