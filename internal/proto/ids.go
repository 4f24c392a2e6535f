package proto

// Packet ids the generator needs to recognize. Ids not listed here but present in
// the catalog are handled by the "silently ignored" fallback in package client;
// ids not present in the catalog at all, for a known phase, are a wire error.
const (
	// Login, clientbound.
	LoginFinished int32 = 0x02

	// Login, serverbound.
	LoginAcknowledged int32 = 0x03

	// Config, clientbound.
	ConfigResourcePackPush      int32 = 0x09
	ConfigFinishConfiguration   int32 = 0x03
	ConfigSelectKnownPacks      int32 = 0x0E
	ConfigRegistryData          int32 = 0x07
	ConfigUpdateTags            int32 = 0x0D
	ConfigCustomPayload         int32 = 0x01
	ConfigUpdateEnabledFeatures int32 = 0x0C

	// Config, serverbound.
	ConfigResourcePackResponse     int32 = 0x06
	ConfigSelectKnownPacksResponse int32 = 0x07
	ConfigFinishConfigurationAck   int32 = 0x03

	// Play, clientbound.
	PlayKeepAlive            int32 = 0x26
	PlayPongResponse         int32 = 0x37
	PlayLevelChunkWithLight  int32 = 0x27
	PlayForgetLevelChunk     int32 = 0x21
	PlayChunkBatchStart      int32 = 0x0C
	PlayChunkBatchFinished   int32 = 0x0B
	PlayGameEvent            int32 = 0x22
	PlayPlayerPosition       int32 = 0x41

	// Play, serverbound.
	PlayKeepAliveResponse   int32 = 0x1A
	PlayPingRequest         int32 = 0x24
	PlayChunkBatchReceived  int32 = 0x09
	PlayPlayerLoaded        int32 = 0x2A
	PlayAcceptTeleportation int32 = 0x00
	PlayMovePlayerPos       int32 = 0x1C
	PlayChatMessage         int32 = 0x07
)

// ResourcePackOutcome values used in the serverbound resource-pack response.
const (
	ResourcePackLoaded         int32 = 0
	ResourcePackDeclined       int32 = 1
	ResourcePackDownloadFailed int32 = 2
	ResourcePackAccepted       int32 = 3
	ResourcePackDownloaded     int32 = 4
	ResourcePackInvalidURL     int32 = 5
	ResourcePackLoadFailed     int32 = 6
	ResourcePackDiscarded      int32 = 7
)

// Teleport relative-flag bits.
const (
	TeleportRelX      uint32 = 1 << 0
	TeleportRelY      uint32 = 1 << 1
	TeleportRelZ      uint32 = 1 << 2
	TeleportRelYaw    uint32 = 1 << 3
	TeleportRelPitch  uint32 = 1 << 4
	TeleportRelXVel   uint32 = 1 << 5
	TeleportRelYVel   uint32 = 1 << 6
	TeleportRelZVel   uint32 = 1 << 7
	TeleportRelRotVel uint32 = 1 << 8
)
