package commands

import (
	"fmt"
	"runtime"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

var botStartTime = time.Now()

// handleStats shows host and Go runtime statistics.
func (h *Handler) handleStats(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	// CPU sampling takes a second; defer so the interaction stays valid.
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
	if err != nil {
		return err
	}

	embed := buildStatsEmbed(s)
	_, err = s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Embeds: &[]*discordgo.MessageEmbed{embed},
	})
	return err
}

func buildStatsEmbed(s *discordgo.Session) *discordgo.MessageEmbed {
	hostValue := "unavailable"
	if info, err := host.Info(); err == nil {
		hostValue = fmt.Sprintf("**Hostname:** `%s`\n**OS:** `%s/%s`\n**Uptime:** `%s`",
			info.Hostname, info.OS, info.KernelArch,
			formatDuration(time.Duration(info.Uptime)*time.Second))
	}

	cpuValue := fmt.Sprintf("**Threads:** `%d`", runtime.NumCPU())
	if pct, err := cpu.Percent(time.Second, false); err == nil && len(pct) > 0 {
		cpuValue += fmt.Sprintf("\n**Usage:** `%.1f%%`", pct[0])
	}

	memValue := "unavailable"
	if vm, err := mem.VirtualMemory(); err == nil {
		memValue = fmt.Sprintf("**Used:** `%s` / `%s` (%.1f%%)",
			formatBytes(vm.Used), formatBytes(vm.Total), vm.UsedPercent)
	}

	diskValue := "unavailable"
	if du, err := disk.Usage("/"); err == nil {
		diskValue = fmt.Sprintf("**Used:** `%s` / `%s` (%.1f%%)",
			formatBytes(du.Used), formatBytes(du.Total), du.UsedPercent)
	}

	var rt runtime.MemStats
	runtime.ReadMemStats(&rt)

	return &discordgo.MessageEmbed{
		Title: "Host & Runtime Statistics",
		Color: 0x00BFFF,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Host", Value: hostValue, Inline: false},
			{Name: "CPU", Value: cpuValue, Inline: true},
			{Name: "Memory", Value: memValue, Inline: true},
			{Name: "Disk", Value: diskValue, Inline: true},
			{
				Name: "Bot",
				Value: fmt.Sprintf("**Uptime:** `%s`\n**Guilds:** `%d`\n**Latency:** `%dms`",
					formatDuration(time.Since(botStartTime)),
					len(s.State.Guilds),
					s.HeartbeatLatency().Milliseconds()),
				Inline: true,
			},
			{
				Name: "Go Runtime",
				Value: fmt.Sprintf("**Version:** `%s`\n**Goroutines:** `%d`\n**Heap:** `%s`\n**GC Cycles:** `%d`",
					runtime.Version(), runtime.NumGoroutine(),
					formatBytes(rt.Alloc), rt.NumGC),
				Inline: true,
			},
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

func formatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func formatDuration(d time.Duration) string {
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
