package main

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/enesunal-m/voiceagent"
	"github.com/enesunal-m/voiceagent/persona"
	"github.com/enesunal-m/voiceagent/portaudio"
)

var (
	accent      = lipgloss.Color("#00ff9f")
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(accent).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(accent)).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...)
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List audio devices",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := portaudio.Initialize(); err != nil {
			return fmt.Errorf("initialize audio: %w", err)
		}
		defer portaudio.Terminate()

		devices, err := portaudio.NewDriver().Devices()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), deviceTable(devices))
		return nil
	},
}

func deviceTable(devices []voiceagent.DeviceInfo) string {
	t := newTable("#", "Name", "In", "Out", "Rate", "Default")
	for _, d := range devices {
		def := ""
		switch {
		case d.DefaultInput && d.DefaultOutput:
			def = "in/out"
		case d.DefaultInput:
			def = "in"
		case d.DefaultOutput:
			def = "out"
		}
		t.Row(strconv.Itoa(d.Index), d.Name,
			strconv.Itoa(d.MaxInputChannels), strconv.Itoa(d.MaxOutputChannels),
			strconv.FormatFloat(d.DefaultSampleRate, 'f', 0, 64), def)
	}
	return t.String()
}

var personasCmd = &cobra.Command{
	Use:   "personas",
	Short: "List industries",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), personaTable(persona.All()))
		return nil
	},
}

func personaTable(all []persona.Persona) string {
	t := newTable("Industry", "Name", "Company")
	for _, p := range all {
		t.Row(p.Industry, p.DisplayName, p.Company)
	}
	return t.String()
}

var voicesCmd = &cobra.Command{
	Use:   "voices",
	Short: "List voice models",
	RunE: func(cmd *cobra.Command, args []string) error {
		t := newTable("Model", "Speaker")
		for _, v := range persona.Voices() {
			t.Row(v.ID, v.Name)
		}
		fmt.Fprintln(cmd.OutOrStdout(), t.String())
		return nil
	},
}
