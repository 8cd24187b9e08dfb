package engine

// Capability names pushed to the sink. These are the canonical names
// the automation platform sees; the sink decides how to surface them.
const (
	CapOnOff              = "onoff"
	CapPumpOnOff          = "pump_onoff"
	CapMsgOnOff           = "msg_onoff"
	CapMassageMode        = "massage_mode"
	CapJetOnOff           = "jet_onoff"
	CapHeatTempReach      = "heat_temp_reach"
	CapPumpState          = "pump_state"
	CapHeatState          = "heat_state"
	CapTempNow            = "temp_now"
	CapMeasurePower       = "measure_power"
	CapMeasureTemperature = "measure_temperature"
	CapTargetTemperature  = "target_temperature"
	CapThermostatMode     = "thermostat_mode"
	CapAlarm              = "alarm_generic"
)

// Edge-triggered event names.
const (
	EventFilterChanged = "filter_pump_changed"
	EventFilterOn      = "filter_pump_turned_on"
	EventFilterOff     = "filter_pump_turned_off"
)
