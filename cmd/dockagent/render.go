package main

import (
	"fmt"
	"strings"

	"dockagent/internal/conversation"
	"dockagent/internal/ir"
	"dockagent/internal/reviewer"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("white")).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("green")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("red")).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("yellow")).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
)

func confidenceStyle(c ir.Confidence) lipgloss.Style {
	switch c {
	case ir.High:
		return successStyle
	case ir.Medium:
		return warningStyle
	default:
		return errorStyle
	}
}

func renderSnapshot(snap ir.Snapshot) string {
	var sb strings.Builder
	row := func(label string, c ir.Confidence, value string) {
		sb.WriteString(fmt.Sprintf("%-11s %s  %s\n", label, confidenceStyle(c).Render(fmt.Sprintf("%-6s", c)), value))
	}

	manifest := snap.Stack.Manifest
	if manifest == "" {
		manifest = "no manifest"
	}
	row("stack", snap.Stack.Confidence, fmt.Sprintf("%s (target=%t, %s, %d candidates)",
		snap.Stack.Ecosystem, snap.Stack.IsTarget, manifest, len(snap.Stack.Candidates)))

	fw := snap.Framework.Framework
	if fw == "" {
		fw = "none"
	} else {
		fw = fmt.Sprintf("%s %s :%d", fw, snap.Framework.Interface, snap.Framework.DefaultPort)
		if snap.Framework.RuntimeServer != "" {
			fw += " via " + snap.Framework.RuntimeServer
		}
	}
	row("framework", snap.Framework.Confidence, fw)

	entry := string(snap.Entrypoint.Model)
	if len(snap.Entrypoint.Command) > 0 {
		entry += ": " + strings.Join(snap.Entrypoint.Command, " ")
	}
	row("entrypoint", snap.Entrypoint.Confidence, entry)

	var notes []string
	notes = append(notes, snap.Stack.Notes...)
	notes = append(notes, snap.Framework.Notes...)
	notes = append(notes, snap.Entrypoint.Notes...)
	for _, n := range notes {
		sb.WriteString(mutedStyle.Render("  - "+n) + "\n")
	}

	return boxStyle.Render(titleStyle.Render("Analysis") + "\n" + strings.TrimRight(sb.String(), "\n"))
}

func renderAction(a conversation.Action, c ir.Confidence, source string) string {
	style := mutedStyle
	switch a {
	case conversation.ActionReadyForGeneration, conversation.ActionDone:
		style = successStyle
	case conversation.ActionNeedsClarification:
		style = warningStyle
	case conversation.ActionRefused:
		style = errorStyle
	}
	line := fmt.Sprintf("Next action: %s (confidence %s", style.Render(string(a)), c)
	if source != "" {
		line += ", from " + source
	}
	return line + ")"
}

func renderQuestions(questions []ir.Question) string {
	var sb strings.Builder
	for _, q := range questions {
		sb.WriteString(warningStyle.Render("? "+q.Prompt) + "\n")
		for _, opt := range q.Options {
			sb.WriteString(fmt.Sprintf("    --answer %s=%s\n", q.ID, opt))
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func renderReasons(title string, reasons []string) string {
	var sb strings.Builder
	sb.WriteString(errorStyle.Render(title) + "\n")
	for _, r := range reasons {
		sb.WriteString("  - " + r + "\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func renderReview(rep reviewer.Report) string {
	var sb strings.Builder
	if rep.Passed {
		sb.WriteString(successStyle.Render("Review passed") + "\n")
	} else {
		sb.WriteString(errorStyle.Render("Review failed") + "\n")
	}
	for _, i := range rep.Issues {
		style := warningStyle
		if i.Severity == reviewer.SeverityError {
			style = errorStyle
		}
		loc := ""
		if i.Line > 0 {
			loc = fmt.Sprintf(" (line %d)", i.Line)
		}
		sb.WriteString(fmt.Sprintf("  %s %s%s %s\n",
			style.Render(fmt.Sprintf("%-7s", i.Severity)), mutedStyle.Render("["+i.Rule+"]"), loc, i.Message))
	}
	return strings.TrimRight(sb.String(), "\n")
}
