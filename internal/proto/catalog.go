package proto

import "fmt"

type catalogKey struct {
	phase     Phase
	direction Direction
	id        int32
}

// catalog is the static (phase, direction, id) -> name table, consulted only for
// diagnostics. It is the protocol schema authority: dispatch in package client
// (via Known) treats any id present here but unhandled as "known, ignored", and any id absent
// from the phase entirely as a wire error.
var catalog = map[catalogKey]string{
	{Login, Clientbound, LoginFinished}: "login_finished",
	{Login, Serverbound, LoginAcknowledged}: "login_acknowledged",

	{Config, Clientbound, ConfigSelectKnownPacks}:      "select_known_packs",
	{Config, Clientbound, ConfigResourcePackPush}:      "resource_pack_push",
	{Config, Clientbound, ConfigFinishConfiguration}:   "finish_configuration",
	{Config, Clientbound, ConfigRegistryData}:          "registry_data",
	{Config, Clientbound, ConfigUpdateTags}:            "update_tags",
	{Config, Clientbound, ConfigCustomPayload}:         "custom_payload",
	{Config, Clientbound, ConfigUpdateEnabledFeatures}: "update_enabled_features",
	{Config, Serverbound, ConfigResourcePackResponse}:     "resource_pack_response",
	{Config, Serverbound, ConfigSelectKnownPacksResponse}: "select_known_packs",
	{Config, Serverbound, ConfigFinishConfigurationAck}:   "finish_configuration",

	{Play, Clientbound, PlayKeepAlive}:           "keep_alive",
	{Play, Clientbound, PlayPongResponse}:        "pong_response",
	{Play, Clientbound, PlayLevelChunkWithLight}: "level_chunk_with_light",
	{Play, Clientbound, PlayForgetLevelChunk}:    "forget_level_chunk",
	{Play, Clientbound, PlayChunkBatchStart}:     "chunk_batch_start",
	{Play, Clientbound, PlayChunkBatchFinished}:  "chunk_batch_finished",
	{Play, Clientbound, PlayGameEvent}:           "game_event",
	{Play, Clientbound, PlayPlayerPosition}:      "player_position",
	{Play, Serverbound, PlayKeepAliveResponse}:   "keep_alive",
	{Play, Serverbound, PlayPingRequest}:         "ping_request",
	{Play, Serverbound, PlayChunkBatchReceived}:  "chunk_batch_received",
	{Play, Serverbound, PlayPlayerLoaded}:        "player_loaded",
	{Play, Serverbound, PlayAcceptTeleportation}: "accept_teleportation",
	{Play, Serverbound, PlayMovePlayerPos}:       "move_player_pos",
	{Play, Serverbound, PlayChatMessage}:         "chat",
}

// Name looks up the diagnostic name for (phase, direction, id). Missing entries
// become "(unknown)" rather than an error — the catalog is consulted only for
// logging.
func Name(phase Phase, dir Direction, id int32) string {
	if n, ok := catalog[catalogKey{phase, dir, id}]; ok {
		return n
	}
	return "(unknown)"
}

// Known reports whether id is enumerated in the catalog for (phase, direction),
// regardless of whether the generator has a handler for it.
func Known(phase Phase, dir Direction, id int32) bool {
	_, ok := catalog[catalogKey{phase, dir, id}]
	return ok
}

// IDString renders an id in the "decimal (hex)" form used by wire-error diagnostics.
func IDString(id int32) string {
	return fmt.Sprintf("%d (0x%02X)", id, id)
}
