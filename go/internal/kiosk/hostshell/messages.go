package hostshell

// ServiceName is the connect service the shell serves.
const ServiceName = "epn.hostshell.v1.HostShell"

const servicePath = "/" + ServiceName + "/"

// Procedure names, one per host call.
const (
	ProcedureInitialize          = servicePath + "Initialize"
	ProcedureGetConfig           = servicePath + "GetConfig"
	ProcedureValidateCode        = servicePath + "ValidateCode"
	ProcedureStartSession        = servicePath + "StartSession"
	ProcedureGetRemainingTime    = servicePath + "GetRemainingTime"
	ProcedureEndSession          = servicePath + "EndSession"
	ProcedureRestartApp          = servicePath + "RestartApp"
	ProcedureLockScreen          = servicePath + "LockScreen"
	ProcedureVerifyAdminPassword = servicePath + "VerifyAdminPassword"
	ProcedureShowNotification    = servicePath + "ShowNotification"

	ProcedureSetFullscreen  = servicePath + "SetFullscreen"
	ProcedureSetDecorations = servicePath + "SetDecorations"
	ProcedureSetAlwaysOnTop = servicePath + "SetAlwaysOnTop"
	ProcedureSetClosable    = servicePath + "SetClosable"
	ProcedureSetSize        = servicePath + "SetSize"
	ProcedureSetPosition    = servicePath + "SetPosition"
	ProcedureCurrentMonitor = servicePath + "CurrentMonitor"
	ProcedureMaximize       = servicePath + "Maximize"
	ProcedureStartDragging  = servicePath + "StartDragging"
	ProcedureIsFullscreen   = servicePath + "IsFullscreen"
	ProcedurePreventClose   = servicePath + "PreventClose"
)

type empty struct{}

type codeRequest struct {
	Code string `json:"code"`
}

type passwordRequest struct {
	Password string `json:"password"`
}

type remainingTimeResponse struct {
	RemainingTime int `json:"remaining_time"`
}

type validResponse struct {
	Valid bool `json:"valid"`
}

type flagMessage struct {
	On bool `json:"on"`
}

type sizeRequest struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type positionRequest struct {
	X int `json:"x"`
	Y int `json:"y"`
}
