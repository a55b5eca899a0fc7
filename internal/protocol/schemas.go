package protocol

// Message names understood by the client. Ids and default encodings live in
// the catalog, field layouts here.
const (
	MsgPacketAck              = "PacketAck"
	MsgStartPingCheck         = "StartPingCheck"
	MsgCompletePingCheck      = "CompletePingCheck"
	MsgAgentUpdate            = "AgentUpdate"
	MsgUseCircuitCode         = "UseCircuitCode"
	MsgChatFromViewer         = "ChatFromViewer"
	MsgChatFromSimulator      = "ChatFromSimulator"
	MsgRegionHandshake        = "RegionHandshake"
	MsgRegionHandshakeReply   = "RegionHandshakeReply"
	MsgDisableSimulator       = "DisableSimulator"
	MsgKickUser               = "KickUser"
	MsgUUIDNameRequest        = "UUIDNameRequest"
	MsgUUIDNameReply          = "UUIDNameReply"
	MsgCompleteAgentMovement  = "CompleteAgentMovement"
	MsgAgentMovementComplete  = "AgentMovementComplete"
	MsgLogoutRequest          = "LogoutRequest"
	MsgLogoutReply            = "LogoutReply"
	MsgImprovedInstantMessage = "ImprovedInstantMessage"
	MsgCloseCircuit           = "CloseCircuit"
)

func newField(name string, t FieldType) Field { return Field{Name: name, Type: t} }

var schemas = []*Schema{
	// Single-entry variable blocks are carried as an explicit count of 1.
	{Name: MsgPacketAck, Fields: []Field{
		newField("Count", FieldU8),
		newField("ID", FieldU32),
	}},
	{Name: MsgStartPingCheck, Fields: []Field{
		newField("PingID", FieldU8),
		newField("OldestUnacked", FieldU32),
	}},
	{Name: MsgCompletePingCheck, Fields: []Field{
		newField("PingID", FieldU8),
	}},
	{Name: MsgAgentUpdate, Fields: []Field{
		newField("AgentID", FieldUUID),
		newField("SessionID", FieldUUID),
		newField("BodyRotation", FieldRotation4),
		newField("HeadRotation", FieldRotation4),
		newField("State", FieldU8),
		newField("CameraCenter", FieldVector3),
		newField("CameraAtAxis", FieldVector3),
		newField("CameraLeftAxis", FieldVector3),
		newField("CameraUpAxis", FieldVector3),
		newField("Far", FieldF32),
		newField("ControlFlags", FieldU32),
		newField("Flags", FieldU8),
	}},
	{Name: MsgUseCircuitCode, Fields: []Field{
		newField("Code", FieldU32),
		newField("SessionID", FieldUUID),
		newField("ID", FieldUUID),
	}},
	{Name: MsgChatFromViewer, Fields: []Field{
		newField("AgentID", FieldUUID),
		newField("SessionID", FieldUUID),
		newField("Message", FieldVariable2),
		newField("Type", FieldU8),
		newField("Channel", FieldS32),
	}},
	{Name: MsgChatFromSimulator, Fields: []Field{
		newField("FromName", FieldVariable1),
		newField("SourceID", FieldUUID),
		newField("OwnerID", FieldUUID),
		newField("SourceType", FieldU8),
		newField("ChatType", FieldU8),
		newField("Audible", FieldU8),
		newField("Position", FieldVector3),
		newField("Message", FieldVariable2),
	}},
	{Name: MsgRegionHandshake, Fields: []Field{
		newField("RegionFlags", FieldU32),
		newField("SimAccess", FieldU8),
		newField("SimName", FieldVariable1),
		newField("SimOwner", FieldUUID),
		newField("IsEstateManager", FieldBool),
		newField("WaterHeight", FieldF32),
		newField("BillableFactor", FieldF32),
		newField("CacheID", FieldUUID),
		newField("TerrainBase0", FieldUUID),
		newField("TerrainBase1", FieldUUID),
		newField("TerrainBase2", FieldUUID),
		newField("TerrainBase3", FieldUUID),
		newField("TerrainDetail0", FieldUUID),
		newField("TerrainDetail1", FieldUUID),
		newField("TerrainDetail2", FieldUUID),
		newField("TerrainDetail3", FieldUUID),
		newField("TerrainStartHeight00", FieldF32),
		newField("TerrainStartHeight01", FieldF32),
		newField("TerrainStartHeight10", FieldF32),
		newField("TerrainStartHeight11", FieldF32),
		newField("TerrainHeightRange00", FieldF32),
		newField("TerrainHeightRange01", FieldF32),
		newField("TerrainHeightRange10", FieldF32),
		newField("TerrainHeightRange11", FieldF32),
		newField("RegionID", FieldUUID),
		newField("CPUClassID", FieldS32),
		newField("CPURatio", FieldS32),
		newField("ColoName", FieldVariable1),
		newField("ProductSKU", FieldVariable1),
		newField("ProductName", FieldVariable1),
		{Name: "RegionInfo4", Type: FieldRepeatingBlock, Block: []Field{
			newField("RegionFlagsExtended", FieldU64),
			newField("RegionProtocols", FieldU64),
		}},
	}},
	{Name: MsgRegionHandshakeReply, Fields: []Field{
		newField("AgentID", FieldUUID),
		newField("SessionID", FieldUUID),
		newField("Flags", FieldU32),
	}},
	{Name: MsgDisableSimulator},
	{Name: MsgKickUser, Fields: []Field{
		newField("TargetIP", FieldU32),
		newField("TargetPort", FieldU16),
		newField("AgentID", FieldUUID),
		newField("SessionID", FieldUUID),
		newField("Reason", FieldVariable2),
	}},
	{Name: MsgUUIDNameRequest, Fields: []Field{
		newField("Count", FieldU8),
		newField("ID", FieldUUID),
	}},
	{Name: MsgUUIDNameReply, Fields: []Field{
		newField("Count", FieldU8),
		newField("ID", FieldUUID),
		newField("FirstName", FieldVariable1),
		newField("LastName", FieldVariable1),
	}},
	{Name: MsgCompleteAgentMovement, Fields: []Field{
		newField("AgentID", FieldUUID),
		newField("SessionID", FieldUUID),
		newField("CircuitCode", FieldU32),
	}},
	{Name: MsgAgentMovementComplete, Fields: []Field{
		newField("AgentID", FieldUUID),
		newField("SessionID", FieldUUID),
		newField("Position", FieldVector3),
		newField("LookAt", FieldVector3),
		newField("RegionHandle", FieldU64),
		newField("Timestamp", FieldU32),
		newField("ChannelVersion", FieldVariable2),
	}},
	{Name: MsgLogoutRequest, Fields: []Field{
		newField("AgentID", FieldUUID),
		newField("SessionID", FieldUUID),
	}},
	{Name: MsgLogoutReply, Fields: []Field{
		newField("AgentID", FieldUUID),
		newField("SessionID", FieldUUID),
		{Name: "InventoryData", Type: FieldRepeatingBlock, Block: []Field{
			newField("ItemID", FieldUUID),
		}},
	}},
	{Name: MsgImprovedInstantMessage, Fields: []Field{
		newField("AgentID", FieldUUID),
		newField("SessionID", FieldUUID),
		newField("FromGroup", FieldBool),
		newField("ToAgentID", FieldUUID),
		newField("ParentEstateID", FieldU32),
		newField("RegionID", FieldUUID),
		newField("Position", FieldVector3),
		newField("Offline", FieldU8),
		newField("Dialog", FieldU8),
		newField("ID", FieldUUID),
		newField("Timestamp", FieldU32),
		newField("FromAgentName", FieldVariable1),
		newField("Message", FieldVariable2),
		newField("BinaryBucket", FieldVariable2),
	}},
	{Name: MsgCloseCircuit},
}

var schemaIndex = func() map[string]*Schema {
	m := make(map[string]*Schema, len(schemas))
	for _, s := range schemas {
		m[s.Name] = s
	}
	return m
}()

// LookupSchema returns the field layout for a message name.
func LookupSchema(name string) (*Schema, bool) {
	s, ok := schemaIndex[name]
	return s, ok
}

// Schemas returns every known layout in declaration order.
func Schemas() []*Schema {
	return append([]*Schema(nil), schemas...)
}
