package hostshell

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

// Client calls a native shell over connect. It implements Shell and Window.
type Client struct {
	initialize          *connect.Client[empty, empty]
	getConfig           *connect.Client[empty, Config]
	validateCode        *connect.Client[codeRequest, SessionInfo]
	startSession        *connect.Client[empty, SessionInfo]
	getRemainingTime    *connect.Client[empty, remainingTimeResponse]
	endSession          *connect.Client[empty, empty]
	restartApp          *connect.Client[empty, empty]
	lockScreen          *connect.Client[empty, empty]
	verifyAdminPassword *connect.Client[passwordRequest, validResponse]
	showNotification    *connect.Client[Notification, empty]

	setFullscreen  *connect.Client[flagMessage, empty]
	setDecorations *connect.Client[flagMessage, empty]
	setAlwaysOnTop *connect.Client[flagMessage, empty]
	setClosable    *connect.Client[flagMessage, empty]
	setSize        *connect.Client[sizeRequest, empty]
	setPosition    *connect.Client[positionRequest, empty]
	currentMonitor *connect.Client[empty, Monitor]
	maximize       *connect.Client[empty, empty]
	startDragging  *connect.Client[empty, empty]
	isFullscreen   *connect.Client[empty, flagMessage]
	preventClose   *connect.Client[flagMessage, empty]
}

var (
	_ Shell  = (*Client)(nil)
	_ Window = (*Client)(nil)
)

// NewClient creates a client for the shell listening at baseURL.
// A nil httpClient uses http.DefaultClient.
func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)

	return &Client{
		initialize:          connect.NewClient[empty, empty](httpClient, baseURL+ProcedureInitialize, opts...),
		getConfig:           connect.NewClient[empty, Config](httpClient, baseURL+ProcedureGetConfig, opts...),
		validateCode:        connect.NewClient[codeRequest, SessionInfo](httpClient, baseURL+ProcedureValidateCode, opts...),
		startSession:        connect.NewClient[empty, SessionInfo](httpClient, baseURL+ProcedureStartSession, opts...),
		getRemainingTime:    connect.NewClient[empty, remainingTimeResponse](httpClient, baseURL+ProcedureGetRemainingTime, opts...),
		endSession:          connect.NewClient[empty, empty](httpClient, baseURL+ProcedureEndSession, opts...),
		restartApp:          connect.NewClient[empty, empty](httpClient, baseURL+ProcedureRestartApp, opts...),
		lockScreen:          connect.NewClient[empty, empty](httpClient, baseURL+ProcedureLockScreen, opts...),
		verifyAdminPassword: connect.NewClient[passwordRequest, validResponse](httpClient, baseURL+ProcedureVerifyAdminPassword, opts...),
		showNotification:    connect.NewClient[Notification, empty](httpClient, baseURL+ProcedureShowNotification, opts...),

		setFullscreen:  connect.NewClient[flagMessage, empty](httpClient, baseURL+ProcedureSetFullscreen, opts...),
		setDecorations: connect.NewClient[flagMessage, empty](httpClient, baseURL+ProcedureSetDecorations, opts...),
		setAlwaysOnTop: connect.NewClient[flagMessage, empty](httpClient, baseURL+ProcedureSetAlwaysOnTop, opts...),
		setClosable:    connect.NewClient[flagMessage, empty](httpClient, baseURL+ProcedureSetClosable, opts...),
		setSize:        connect.NewClient[sizeRequest, empty](httpClient, baseURL+ProcedureSetSize, opts...),
		setPosition:    connect.NewClient[positionRequest, empty](httpClient, baseURL+ProcedureSetPosition, opts...),
		currentMonitor: connect.NewClient[empty, Monitor](httpClient, baseURL+ProcedureCurrentMonitor, opts...),
		maximize:       connect.NewClient[empty, empty](httpClient, baseURL+ProcedureMaximize, opts...),
		startDragging:  connect.NewClient[empty, empty](httpClient, baseURL+ProcedureStartDragging, opts...),
		isFullscreen:   connect.NewClient[empty, flagMessage](httpClient, baseURL+ProcedureIsFullscreen, opts...),
		preventClose:   connect.NewClient[flagMessage, empty](httpClient, baseURL+ProcedurePreventClose, opts...),
	}
}

func call[Req, Res any](ctx context.Context, c *connect.Client[Req, Res], name string, req *Req) (*Res, error) {
	resp, err := c.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, &HostCallError{Call: name, Err: err}
	}
	return resp.Msg, nil
}

func (c *Client) Initialize(ctx context.Context) error {
	_, err := call(ctx, c.initialize, "initialize", &empty{})
	return err
}

func (c *Client) GetConfig(ctx context.Context) (Config, error) {
	res, err := call(ctx, c.getConfig, "get_config", &empty{})
	if err != nil {
		return Config{}, err
	}
	return *res, nil
}

func (c *Client) ValidateCode(ctx context.Context, code string) (SessionInfo, error) {
	res, err := call(ctx, c.validateCode, "validate_code", &codeRequest{Code: code})
	if err != nil {
		return SessionInfo{}, err
	}
	return *res, nil
}

func (c *Client) StartSession(ctx context.Context) (SessionInfo, error) {
	res, err := call(ctx, c.startSession, "start_session", &empty{})
	if err != nil {
		return SessionInfo{}, err
	}
	return *res, nil
}

func (c *Client) GetRemainingTime(ctx context.Context) (int, error) {
	res, err := call(ctx, c.getRemainingTime, "get_remaining_time", &empty{})
	if err != nil {
		return 0, err
	}
	return res.RemainingTime, nil
}

func (c *Client) EndSession(ctx context.Context) error {
	_, err := call(ctx, c.endSession, "end_session", &empty{})
	return err
}

func (c *Client) RestartApp(ctx context.Context) error {
	_, err := call(ctx, c.restartApp, "restart_app", &empty{})
	return err
}

func (c *Client) LockScreen(ctx context.Context) error {
	_, err := call(ctx, c.lockScreen, "lock_screen", &empty{})
	return err
}

func (c *Client) VerifyAdminPassword(ctx context.Context, password string) (bool, error) {
	res, err := call(ctx, c.verifyAdminPassword, "verify_admin_password", &passwordRequest{Password: password})
	if err != nil {
		return false, err
	}
	return res.Valid, nil
}

func (c *Client) ShowNotification(ctx context.Context, n Notification) error {
	_, err := call(ctx, c.showNotification, "show_notification", &n)
	return err
}

func (c *Client) SetFullscreen(ctx context.Context, on bool) error {
	_, err := call(ctx, c.setFullscreen, "setFullscreen", &flagMessage{On: on})
	return err
}

func (c *Client) SetDecorations(ctx context.Context, on bool) error {
	_, err := call(ctx, c.setDecorations, "setDecorations", &flagMessage{On: on})
	return err
}

func (c *Client) SetAlwaysOnTop(ctx context.Context, on bool) error {
	_, err := call(ctx, c.setAlwaysOnTop, "setAlwaysOnTop", &flagMessage{On: on})
	return err
}

func (c *Client) SetClosable(ctx context.Context, on bool) error {
	_, err := call(ctx, c.setClosable, "setClosable", &flagMessage{On: on})
	return err
}

func (c *Client) SetSize(ctx context.Context, width, height int) error {
	_, err := call(ctx, c.setSize, "setSize", &sizeRequest{Width: width, Height: height})
	return err
}

func (c *Client) SetPosition(ctx context.Context, x, y int) error {
	_, err := call(ctx, c.setPosition, "setPosition", &positionRequest{X: x, Y: y})
	return err
}

func (c *Client) CurrentMonitor(ctx context.Context) (Monitor, error) {
	res, err := call(ctx, c.currentMonitor, "currentMonitor", &empty{})
	if err != nil {
		return Monitor{}, err
	}
	return *res, nil
}

func (c *Client) Maximize(ctx context.Context) error {
	_, err := call(ctx, c.maximize, "maximize", &empty{})
	return err
}

func (c *Client) StartDragging(ctx context.Context) error {
	_, err := call(ctx, c.startDragging, "startDragging", &empty{})
	return err
}

func (c *Client) IsFullscreen(ctx context.Context) (bool, error) {
	res, err := call(ctx, c.isFullscreen, "isFullscreen", &empty{})
	if err != nil {
		return false, err
	}
	return res.On, nil
}

func (c *Client) PreventClose(ctx context.Context, on bool) error {
	_, err := call(ctx, c.preventClose, "onCloseRequested", &flagMessage{On: on})
	return err
}
