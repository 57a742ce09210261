package sessionstate

import (
	"github.com/agentcore/core/pkg/models"
)

// RepairReport summarizes what RepairHistory changed, for logging by a
// Session Manager when resuming a session after a crash mid-turn.
type RepairReport struct {
	SyntheticInserted int
	DroppedOrphans    int
	DroppedDuplicates int
}

// RepairHistory ensures every assistant tool-call message (Sender ==
// RoleAssistant with ToolCallID set) is immediately followed by exactly
// one matching tool-result message (Sender == RoleTool with the same
// ToolCallID). This invariant matters because a session can be resumed
// from a HistoryBackend after a process crash interrupted a turn
// between dispatch and reconciliation, and an unpaired tool call
// confuses providers that require strict call/result pairing.
//
// It:
//   - drops tool messages whose ToolCallID does not match any preceding
//     assistant call (orphans, e.g. left over from a since-discarded
//     branch)
//   - drops duplicate tool results for a call ID already paired
//   - inserts a synthetic error tool-result message immediately after
//     any assistant tool call left unanswered at the end of history
func RepairHistory(messages []models.ChatMessage) ([]models.ChatMessage, RepairReport) {
	var report RepairReport
	out := make([]models.ChatMessage, 0, len(messages))
	paired := make(map[string]bool)
	pendingCallID := ""

	for _, msg := range messages {
		switch {
		case msg.Sender == models.RoleAssistant && msg.ToolCallID != "":
			if pendingCallID != "" && !paired[pendingCallID] {
				out = append(out, syntheticToolResult(pendingCallID, out[len(out)-1].ToolName))
				report.SyntheticInserted++
			}
			out = append(out, msg)
			pendingCallID = msg.ToolCallID
			paired[msg.ToolCallID] = false

		case msg.Sender == models.RoleTool && msg.ToolCallID != "":
			if _, known := paired[msg.ToolCallID]; !known {
				report.DroppedOrphans++
				continue
			}
			if paired[msg.ToolCallID] {
				report.DroppedDuplicates++
				continue
			}
			out = append(out, msg)
			paired[msg.ToolCallID] = true
			if msg.ToolCallID == pendingCallID {
				pendingCallID = ""
			}

		default:
			out = append(out, msg)
		}
	}

	if pendingCallID != "" && !paired[pendingCallID] {
		toolName := ""
		if n := len(out); n > 0 {
			toolName = out[n-1].ToolName
		}
		out = append(out, syntheticToolResult(pendingCallID, toolName))
		report.SyntheticInserted++
	}

	return out, report
}

func syntheticToolResult(callID, toolName string) models.ChatMessage {
	return models.ChatMessage{
		Sender:     models.RoleTool,
		ToolCallID: callID,
		ToolName:   toolName,
		Content:    `{"error":"interrupted before completion"}`,
	}
}
