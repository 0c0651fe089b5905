package handler

import (
	"context"

	"google.golang.org/grpc"
)

const storefrontService = "shop.v1.Storefront"

type ListProductsRequest struct {
	SessionID   string `json:"session_id,omitempty"`
	Query       string `json:"query,omitempty"`
	Category    string `json:"category,omitempty"`
	InStockOnly bool   `json:"in_stock_only,omitempty"`
	Page        int    `json:"page,omitempty"`
}

type ListProductsResponse struct {
	Products   []productResponse `json:"products"`
	Page       int               `json:"page"`
	TotalPages int               `json:"total_pages"`
	Total      int               `json:"total"`
}

type GetProductRequest struct {
	ID int64 `json:"id"`
}

type LoginRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Username  string `json:"username"`
	Password  string `json:"password"`
}

type LoginResponse struct {
	SessionID string `json:"session_id"`
	UserID    int64  `json:"user_id"`
}

type AddToCartRequest struct {
	SessionID string `json:"session_id,omitempty"`
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type GetCartRequest struct {
	SessionID string `json:"session_id"`
}

type CartResponse struct {
	SessionID  string             `json:"session_id"`
	Items      []cartLineResponse `json:"items"`
	TotalPrice string             `json:"total_price"`
	CartCount  int                `json:"cart_count"`
	CartItems  int                `json:"cart_items"`
	Warnings   []string           `json:"warnings,omitempty"`
}

type CheckoutRequest struct {
	SessionID       string `json:"session_id"`
	ShippingAddress string `json:"shipping_address,omitempty"`
	BillingAddress  string `json:"billing_address,omitempty"`
}

type CheckoutResponse struct {
	OrderID    string   `json:"order_id"`
	TotalPrice string   `json:"total_price"`
	Items      int      `json:"items"`
	Warnings   []string `json:"warnings,omitempty"`
}

type StorefrontServer interface {
	ListProducts(context.Context, *ListProductsRequest) (*ListProductsResponse, error)
	GetProduct(context.Context, *GetProductRequest) (*productResponse, error)
	Login(context.Context, *LoginRequest) (*LoginResponse, error)
	AddToCart(context.Context, *AddToCartRequest) (*CartResponse, error)
	GetCart(context.Context, *GetCartRequest) (*CartResponse, error)
	Checkout(context.Context, *CheckoutRequest) (*CheckoutResponse, error)
}

func unaryMethod[Req, Resp any](name string, call func(StorefrontServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(StorefrontServer)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + storefrontService + "/" + name}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(*Req))
			})
		},
	}
}

var storefrontServiceDesc = grpc.ServiceDesc{
	ServiceName: storefrontService,
	HandlerType: (*StorefrontServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("ListProducts", StorefrontServer.ListProducts),
		unaryMethod("GetProduct", StorefrontServer.GetProduct),
		unaryMethod("Login", StorefrontServer.Login),
		unaryMethod("AddToCart", StorefrontServer.AddToCart),
		unaryMethod("GetCart", StorefrontServer.GetCart),
		unaryMethod("Checkout", StorefrontServer.Checkout),
	},
	Streams: []grpc.StreamDesc{},
}

func RegisterStorefrontServer(s grpc.ServiceRegistrar, srv StorefrontServer) {
	s.RegisterService(&storefrontServiceDesc, srv)
}

// StorefrontClient calls the storefront service over a connection using the
// JSON codec.
type StorefrontClient struct {
	cc grpc.ClientConnInterface
}

func NewStorefrontClient(cc grpc.ClientConnInterface) *StorefrontClient {
	return &StorefrontClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(jsonCodecName)}, opts...)
	if err := cc.Invoke(ctx, "/"+storefrontService+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *StorefrontClient) ListProducts(ctx context.Context, in *ListProductsRequest, opts ...grpc.CallOption) (*ListProductsResponse, error) {
	return invoke[ListProductsResponse](ctx, c.cc, "ListProducts", in, opts)
}

func (c *StorefrontClient) GetProduct(ctx context.Context, in *GetProductRequest, opts ...grpc.CallOption) (*productResponse, error) {
	return invoke[productResponse](ctx, c.cc, "GetProduct", in, opts)
}

func (c *StorefrontClient) Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error) {
	return invoke[LoginResponse](ctx, c.cc, "Login", in, opts)
}

func (c *StorefrontClient) AddToCart(ctx context.Context, in *AddToCartRequest, opts ...grpc.CallOption) (*CartResponse, error) {
	return invoke[CartResponse](ctx, c.cc, "AddToCart", in, opts)
}

func (c *StorefrontClient) GetCart(ctx context.Context, in *GetCartRequest, opts ...grpc.CallOption) (*CartResponse, error) {
	return invoke[CartResponse](ctx, c.cc, "GetCart", in, opts)
}

func (c *StorefrontClient) Checkout(ctx context.Context, in *CheckoutRequest, opts ...grpc.CallOption) (*CheckoutResponse, error) {
	return invoke[CheckoutResponse](ctx, c.cc, "Checkout", in, opts)
}
