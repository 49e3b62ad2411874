package handler

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
)

type GRPCHandler struct {
	cart *service.CartStore
	log  *zap.Logger
}

func NewGRPCHandler(cart *service.CartStore, log *zap.Logger) *GRPCHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &GRPCHandler{cart: cart, log: log.Named("grpc")}
}

func (h *GRPCHandler) AddEntry(ctx context.Context, req *AddEntryRequest) (*CartReply, error) {
	entries, err := h.cart.AddEntrySnapshot(ctx, req.Entry)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return &CartReply{Entries: entries}, nil
}

func (h *GRPCHandler) RemoveEntry(ctx context.Context, req *RemoveEntryRequest) (*CartReply, error) {
	if req.ID <= 0 {
		return nil, status.Error(codes.InvalidArgument, "id must be positive")
	}

	entries, removed, err := h.cart.RemoveEntrySnapshot(ctx, req.ID)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return &CartReply{Entries: entries, Removed: removed}, nil
}

func (h *GRPCHandler) ListEntries(ctx context.Context, req *ListEntriesRequest) (*CartReply, error) {
	h.cart.Initialize(ctx)
	return &CartReply{Entries: h.cart.Entries()}, nil
}

func (h *GRPCHandler) Clear(ctx context.Context, req *ClearRequest) (*CartReply, error) {
	if err := h.cart.Clear(ctx); err != nil {
		return nil, h.toStatus(err)
	}
	return &CartReply{Entries: []domain.CartEntry{}}, nil
}

func (h *GRPCHandler) Watch(req *WatchRequest, stream grpc.ServerStreamingServer[CartReply]) error {
	ctx := stream.Context()
	h.cart.Initialize(ctx)

	for entries := range h.cart.Subscribe(ctx) {
		if err := stream.Send(&CartReply{Entries: entries}); err != nil {
			return err
		}
	}
	return nil
}

func (h *GRPCHandler) toStatus(err error) error {
	if errors.Is(err, domain.ErrInvalidEntry) {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	h.log.Error("cart update failed", zap.Error(err))
	return status.Error(codes.Unavailable, "cart storage unavailable")
}
