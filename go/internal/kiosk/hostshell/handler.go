package hostshell

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"github.com/rs/zerolog/log"
)

// NewHandler serves shell and window over connect. It returns the path to
// mount the handler on, like generated connect handlers do.
func NewHandler(shell Shell, window Window, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)
	mux := http.NewServeMux()

	handle := func(procedure string, h http.Handler) {
		mux.Handle(procedure, h)
	}

	handle(ProcedureInitialize, unary(ProcedureInitialize, func(ctx context.Context, _ *empty) (*empty, error) {
		return &empty{}, shell.Initialize(ctx)
	}, opts))
	handle(ProcedureGetConfig, unary(ProcedureGetConfig, func(ctx context.Context, _ *empty) (*Config, error) {
		cfg, err := shell.GetConfig(ctx)
		return &cfg, err
	}, opts))
	handle(ProcedureValidateCode, unary(ProcedureValidateCode, func(ctx context.Context, req *codeRequest) (*SessionInfo, error) {
		info, err := shell.ValidateCode(ctx, req.Code)
		return &info, err
	}, opts))
	handle(ProcedureStartSession, unary(ProcedureStartSession, func(ctx context.Context, _ *empty) (*SessionInfo, error) {
		info, err := shell.StartSession(ctx)
		return &info, err
	}, opts))
	handle(ProcedureGetRemainingTime, unary(ProcedureGetRemainingTime, func(ctx context.Context, _ *empty) (*remainingTimeResponse, error) {
		remaining, err := shell.GetRemainingTime(ctx)
		return &remainingTimeResponse{RemainingTime: remaining}, err
	}, opts))
	handle(ProcedureEndSession, unary(ProcedureEndSession, func(ctx context.Context, _ *empty) (*empty, error) {
		return &empty{}, shell.EndSession(ctx)
	}, opts))
	handle(ProcedureRestartApp, unary(ProcedureRestartApp, func(ctx context.Context, _ *empty) (*empty, error) {
		return &empty{}, shell.RestartApp(ctx)
	}, opts))
	handle(ProcedureLockScreen, unary(ProcedureLockScreen, func(ctx context.Context, _ *empty) (*empty, error) {
		return &empty{}, shell.LockScreen(ctx)
	}, opts))
	handle(ProcedureVerifyAdminPassword, unary(ProcedureVerifyAdminPassword, func(ctx context.Context, req *passwordRequest) (*validResponse, error) {
		ok, err := shell.VerifyAdminPassword(ctx, req.Password)
		return &validResponse{Valid: ok}, err
	}, opts))
	handle(ProcedureShowNotification, unary(ProcedureShowNotification, func(ctx context.Context, req *Notification) (*empty, error) {
		return &empty{}, shell.ShowNotification(ctx, *req)
	}, opts))

	handle(ProcedureSetFullscreen, unary(ProcedureSetFullscreen, func(ctx context.Context, req *flagMessage) (*empty, error) {
		return &empty{}, window.SetFullscreen(ctx, req.On)
	}, opts))
	handle(ProcedureSetDecorations, unary(ProcedureSetDecorations, func(ctx context.Context, req *flagMessage) (*empty, error) {
		return &empty{}, window.SetDecorations(ctx, req.On)
	}, opts))
	handle(ProcedureSetAlwaysOnTop, unary(ProcedureSetAlwaysOnTop, func(ctx context.Context, req *flagMessage) (*empty, error) {
		return &empty{}, window.SetAlwaysOnTop(ctx, req.On)
	}, opts))
	handle(ProcedureSetClosable, unary(ProcedureSetClosable, func(ctx context.Context, req *flagMessage) (*empty, error) {
		return &empty{}, window.SetClosable(ctx, req.On)
	}, opts))
	handle(ProcedureSetSize, unary(ProcedureSetSize, func(ctx context.Context, req *sizeRequest) (*empty, error) {
		return &empty{}, window.SetSize(ctx, req.Width, req.Height)
	}, opts))
	handle(ProcedureSetPosition, unary(ProcedureSetPosition, func(ctx context.Context, req *positionRequest) (*empty, error) {
		return &empty{}, window.SetPosition(ctx, req.X, req.Y)
	}, opts))
	handle(ProcedureCurrentMonitor, unary(ProcedureCurrentMonitor, func(ctx context.Context, _ *empty) (*Monitor, error) {
		m, err := window.CurrentMonitor(ctx)
		return &m, err
	}, opts))
	handle(ProcedureMaximize, unary(ProcedureMaximize, func(ctx context.Context, _ *empty) (*empty, error) {
		return &empty{}, window.Maximize(ctx)
	}, opts))
	handle(ProcedureStartDragging, unary(ProcedureStartDragging, func(ctx context.Context, _ *empty) (*empty, error) {
		return &empty{}, window.StartDragging(ctx)
	}, opts))
	handle(ProcedureIsFullscreen, unary(ProcedureIsFullscreen, func(ctx context.Context, _ *empty) (*flagMessage, error) {
		on, err := window.IsFullscreen(ctx)
		return &flagMessage{On: on}, err
	}, opts))
	handle(ProcedurePreventClose, unary(ProcedurePreventClose, func(ctx context.Context, req *flagMessage) (*empty, error) {
		return &empty{}, window.PreventClose(ctx, req.On)
	}, opts))

	return servicePath, mux
}

func unary[Req, Res any](procedure string, fn func(context.Context, *Req) (*Res, error), opts []connect.HandlerOption) *connect.Handler {
	return connect.NewUnaryHandler(procedure, func(ctx context.Context, req *connect.Request[Req]) (*connect.Response[Res], error) {
		res, err := fn(ctx, req.Msg)
		if err != nil {
			log.Warn().Err(err).Str("procedure", procedure).Msg("host call failed")
			return nil, connect.NewError(connect.CodeInternal, err)
		}
		return connect.NewResponse(res), nil
	}, opts...)
}
