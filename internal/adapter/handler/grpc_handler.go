package handler

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rl1809/smart-pantry/internal/core/domain"
	"github.com/rl1809/smart-pantry/internal/core/service"
	"github.com/rl1809/smart-pantry/internal/logger"
)

const grpcServiceName = "pantry.v1.PantryService"

type CommandRequest struct {
	Text      string `json:"text"`
	RequestID string `json:"request_id"`
}

type CommandResponse struct {
	Success bool          `json:"success"`
	Intent  string        `json:"intent"`
	Message string        `json:"message"`
	Item    *ItemResponse `json:"item,omitempty"`
}

type ListRequest struct {
	ExpiringWithinDays *int `json:"expiring_within_days,omitempty"`
	Limit              int  `json:"limit"`
}

type ListResponse struct {
	Items []ItemResponse `json:"items"`
}

type DeleteRequest struct {
	ID string `json:"id"`
}

type DeleteResponse struct {
	Item ItemResponse `json:"item"`
}

type PantryServiceServer interface {
	Command(context.Context, *CommandRequest) (*CommandResponse, error)
	List(context.Context, *ListRequest) (*ListResponse, error)
	Delete(context.Context, *DeleteRequest) (*DeleteResponse, error)
}

type GRPCHandler struct {
	pantryService *service.PantryService
	log           logger.Logger
}

func NewGRPCHandler(pantryService *service.PantryService, log logger.Logger) *GRPCHandler {
	return &GRPCHandler{pantryService: pantryService, log: log}
}

// Command mirrors the HTTP command endpoint. Clarification outcomes are
// reported in the response body, not as gRPC errors.
func (h *GRPCHandler) Command(ctx context.Context, req *CommandRequest) (*CommandResponse, error) {
	res, err := h.pantryService.ExecuteCommand(ctx, req.Text, req.RequestID)
	if err != nil {
		httpStatus, message := commandErrorStatus(err)
		if errors.Is(err, service.ErrDuplicateRequest) {
			return nil, status.Error(codes.AlreadyExists, message)
		}
		if httpStatus >= 500 {
			h.log.Error("grpc command failed", map[string]interface{}{"error": err.Error()})
			return nil, status.Error(codes.Internal, message)
		}
		return &CommandResponse{
			Success: false,
			Intent:  string(res.Intent),
			Message: message,
		}, nil
	}

	item := toItemResponse(res.Item, h.pantryService.Today())
	return &CommandResponse{
		Success: true,
		Intent:  string(res.Intent),
		Message: commandMessage(res),
		Item:    &item,
	}, nil
}

func (h *GRPCHandler) List(ctx context.Context, req *ListRequest) (*ListResponse, error) {
	if req.Limit < 0 || (req.ExpiringWithinDays != nil && *req.ExpiringWithinDays < 0) {
		return nil, status.Error(codes.InvalidArgument, "limit and expiring_within_days must not be negative")
	}

	items, err := h.pantryService.ListItems(ctx, domain.ListFilter{
		ExpiringWithinDays: req.ExpiringWithinDays,
		Limit:              req.Limit,
	})
	if err != nil {
		h.log.Error("grpc list failed", map[string]interface{}{"error": err.Error()})
		return nil, status.Error(codes.Internal, msgInternal)
	}

	today := h.pantryService.Today()
	resp := &ListResponse{Items: make([]ItemResponse, 0, len(items))}
	for _, it := range items {
		resp.Items = append(resp.Items, toItemResponse(it, today))
	}
	return resp, nil
}

func (h *GRPCHandler) Delete(ctx context.Context, req *DeleteRequest) (*DeleteResponse, error) {
	if req.ID == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}

	item, err := h.pantryService.DeleteItem(ctx, req.ID, domain.SourceGRPC)
	if errors.Is(err, service.ErrItemNotFound) {
		return nil, status.Error(codes.NotFound, msgNotFound)
	}
	if err != nil {
		h.log.Error("grpc delete failed", map[string]interface{}{"error": err.Error()})
		return nil, status.Error(codes.Internal, msgInternal)
	}
	return &DeleteResponse{Item: toItemResponse(item, h.pantryService.Today())}, nil
}

// RegisterPantryServiceServer registers srv on s under pantry.v1.PantryService.
func RegisterPantryServiceServer(s grpc.ServiceRegistrar, srv PantryServiceServer) {
	s.RegisterService(&pantryServiceDesc, srv)
}

var pantryServiceDesc = grpc.ServiceDesc{
	ServiceName: grpcServiceName,
	HandlerType: (*PantryServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Command", Handler: unaryHandler("Command", func(srv PantryServiceServer, ctx context.Context, req *CommandRequest) (interface{}, error) {
			return srv.Command(ctx, req)
		})},
		{MethodName: "List", Handler: unaryHandler("List", func(srv PantryServiceServer, ctx context.Context, req *ListRequest) (interface{}, error) {
			return srv.List(ctx, req)
		})},
		{MethodName: "Delete", Handler: unaryHandler("Delete", func(srv PantryServiceServer, ctx context.Context, req *DeleteRequest) (interface{}, error) {
			return srv.Delete(ctx, req)
		})},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pantry/v1/pantry.proto",
}

func unaryHandler[Req any](method string, call func(PantryServiceServer, context.Context, *Req) (interface{}, error)) grpc.MethodHandler {
	fullMethod := "/" + grpcServiceName + "/" + method
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(PantryServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(PantryServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// PantryClient calls pantry.v1.PantryService using the JSON codec.
type PantryClient struct {
	cc grpc.ClientConnInterface
}

func NewPantryClient(cc grpc.ClientConnInterface) *PantryClient {
	return &PantryClient{cc: cc}
}

func (c *PantryClient) Command(ctx context.Context, req *CommandRequest, opts ...grpc.CallOption) (*CommandResponse, error) {
	out := new(CommandResponse)
	if err := c.invoke(ctx, "Command", req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *PantryClient) List(ctx context.Context, req *ListRequest, opts ...grpc.CallOption) (*ListResponse, error) {
	out := new(ListResponse)
	if err := c.invoke(ctx, "List", req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *PantryClient) Delete(ctx context.Context, req *DeleteRequest, opts ...grpc.CallOption) (*DeleteResponse, error) {
	out := new(DeleteResponse)
	if err := c.invoke(ctx, "Delete", req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *PantryClient) invoke(ctx context.Context, method string, in, out interface{}, opts ...grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(jsonCodec{}.Name())}, opts...)
	return c.cc.Invoke(ctx, "/"+grpcServiceName+"/"+method, in, out, opts...)
}

var _ PantryServiceServer = (*GRPCHandler)(nil)
