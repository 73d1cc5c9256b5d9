package realtime

// Outbound wire channels.
const (
	ChannelMessage = "message"
	ChannelSave    = "save"
	ChannelLoad    = "load"
)

// Inbound channels published by the robot backend that have named accessors
// on Client. The backend may emit others; those reach consumers through
// StreamFor or the catch-all sink.
const (
	ChannelSessionAccess                = "session_access"
	ChannelHeartbeat                    = "heartbeat"
	ChannelHeartbeatDisconnect          = "heartbeat_disconnect"
	ChannelCurrentSerialConnectionState = "current_serial_connection_state"
	ChannelMemoryUsage                  = "memory_channel"
	ChannelCPUUsage                     = "cpu_channel"
	ChannelResourceMonitor              = "ResourceMonitor"
	ChannelBatteryLevel                 = "BatteryLvl"
	ChannelInstantConsumption           = "InstantConsumption"
	ChannelEnableButton                 = "EnableButton"
	ChannelCamera                       = "serialCamera"
	ChannelLocation                     = "Location"
	ChannelSemaphores                   = "Semaphores"
	ChannelCurrentSpeed                 = "CurrentSpeed"
	ChannelCurrentSteer                 = "CurrentSteer"
	ChannelSerialConnectionState        = "SerialConnectionState"
	ChannelWarningSignal                = "WarningSignal"
	ChannelStateChange                  = "StateChange"
	ChannelSteeringLimits               = "SteeringLimits"
	ChannelCalibration                  = "Calibration"
	ChannelConsoleLog                   = "console_log"
	ChannelLoadBack                     = "loadBack"
)

// KnownChannels lists every inbound channel with a named accessor.
func KnownChannels() []string {
	return []string{
		ChannelSessionAccess,
		ChannelHeartbeat,
		ChannelHeartbeatDisconnect,
		ChannelCurrentSerialConnectionState,
		ChannelMemoryUsage,
		ChannelCPUUsage,
		ChannelResourceMonitor,
		ChannelBatteryLevel,
		ChannelInstantConsumption,
		ChannelEnableButton,
		ChannelCamera,
		ChannelLocation,
		ChannelSemaphores,
		ChannelCurrentSpeed,
		ChannelCurrentSteer,
		ChannelSerialConnectionState,
		ChannelWarningSignal,
		ChannelStateChange,
		ChannelSteeringLimits,
		ChannelCalibration,
		ChannelConsoleLog,
		ChannelLoadBack,
	}
}
