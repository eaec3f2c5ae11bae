package dialognode

const (
	MsgWelcome           = "Welcome! To provide you with accurate information, please share your location."
	MsgInvalidLocation   = "That location could not be read. Please share your location again."
	MsgLocationReceived  = "Location received! Latitude: %s, Longitude: %s. Now, enter the date (YYYY-MM-DD)."
	MsgInvalidDate       = "Please enter the date in the format YYYY-MM-DD."
	MsgDateReceived      = "Date '%s' received. Now, enter the crop name."
	MsgEmptyCrop         = "Please enter the crop name."
	MsgCancelled         = "Operation cancelled."
	MsgMissingPriorInput = "Error: Missing location or date. Please start over by typing /start."
)
