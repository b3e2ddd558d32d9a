package service

import (
	"context"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wholesail/wholesail/internal/domain"
	"github.com/wholesail/wholesail/internal/domain/mocks"
)

func validInquiry() domain.CreateInquiryRequest {
	return domain.CreateInquiryRequest{
		CompanyName: "Corner Shop",
		ContactName: "Sam",
		Email:       "Sam@Corner.shop",
		Message:     "Pricing for 40 cases?",
		Quantity:    40,
	}
}

func TestInquiryService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("stores and notifies", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := mocks.NewMockInquiryRepository(ctrl)
		notifier := mocks.NewMockEventNotifier(ctrl)
		svc := NewInquiryService(repo, notifier, newMockLogger(ctrl))

		gomock.InOrder(
			repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil),
			notifier.EXPECT().Notify(gomock.Any(), domain.EventInquiryCreated, gomock.Any()).DoAndReturn(
				func(_ context.Context, _ string, data interface{}) error {
					inq := data.(*domain.Inquiry)
					assert.Equal(t, "sam@corner.shop", inq.Email)
					return nil
				}),
		)

		inq, err := svc.Create(ctx, validInquiry())
		require.NoError(t, err)
		assert.NotEmpty(t, inq.ID)
		assert.Equal(t, domain.InquiryStatusNew, inq.Status)
	})

	t.Run("notification failure does not fail the submission", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := mocks.NewMockInquiryRepository(ctrl)
		notifier := mocks.NewMockEventNotifier(ctrl)
		svc := NewInquiryService(repo, notifier, newMockLogger(ctrl))

		repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
		notifier.EXPECT().Notify(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("timeout"))

		_, err := svc.Create(ctx, validInquiry())
		assert.NoError(t, err)
	})

	t.Run("without notifier", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := mocks.NewMockInquiryRepository(ctrl)
		svc := NewInquiryService(repo, nil, newMockLogger(ctrl))

		repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)

		_, err := svc.Create(ctx, validInquiry())
		assert.NoError(t, err)
	})

	t.Run("validation error stores nothing", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		svc := NewInquiryService(mocks.NewMockInquiryRepository(ctrl), nil, newMockLogger(ctrl))

		req := validInquiry()
		req.Quantity = -1
		_, err := svc.Create(ctx, req)
		assert.True(t, domain.IsValidation(err))
	})

	t.Run("repository error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := mocks.NewMockInquiryRepository(ctrl)
		svc := NewInquiryService(repo, nil, newMockLogger(ctrl))

		repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.New("db down"))

		_, err := svc.Create(ctx, validInquiry())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create inquiry")
	})
}

func TestInquiryService_ListAndUpdate(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockInquiryRepository(ctrl)
	svc := NewInquiryService(repo, nil, newMockLogger(ctrl))
	ctx := context.Background()

	filter := domain.InquiryFilter{Status: domain.InquiryStatusNew, Limit: 24}
	repo.EXPECT().List(gomock.Any(), filter).Return([]*domain.Inquiry{{ID: "i1"}}, 7, nil)

	page, err := svc.List(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, 7, page.Total)

	repo.EXPECT().UpdateStatus(gomock.Any(), "i1", domain.InquiryStatusQuoted, gomock.Any()).Return(nil)
	require.NoError(t, svc.UpdateStatus(ctx, domain.UpdateInquiryStatusRequest{ID: "i1", Status: domain.InquiryStatusQuoted}))

	assert.True(t, domain.IsValidation(svc.UpdateStatus(ctx, domain.UpdateInquiryStatusRequest{ID: "i1", Status: "won"})))
}
