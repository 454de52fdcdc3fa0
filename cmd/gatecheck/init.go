package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/gatecheck/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a gatecheck configuration for this repository",
	Long: `Create a .gatecheck.yaml in the repository root.

The generated pipeline is a preset for the detected project type (go,
node, rust, python); edit it to match your checks. Also adds the
.gatecheck/ state directory to .gitignore.`,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	if err := CheckGitCLI(); err != nil {
		printStatus("✗", "Git not found", color.FgRed)
		return err
	}
	printStatus("✓", "Git found", color.FgGreen)

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}
	root, err := findGitRoot(cwd)
	if err != nil {
		printStatus("⚠", "Not in a git repository; results will not be cached until one exists", color.FgYellow)
		root = cwd
	}

	projectType := config.DetectProjectType(root)
	if projectType == config.ProjectTypeUnknown {
		printStatus("⚠", "Could not detect project type; writing an empty pipeline to fill in", color.FgYellow)
	} else {
		printStatus("✓", fmt.Sprintf("Detected %s project", projectType), color.FgGreen)
	}

	cfg := config.Default(root)
	path, err := config.WriteProjectConfig(root, cfg)
	if err != nil {
		return err
	}
	printStatus("✓", fmt.Sprintf("Created %s", filepath.Base(path)), color.FgGreen)

	if err := ensureGitignoreEntry(root, ".gatecheck/"); err != nil {
		printStatus("⚠", fmt.Sprintf("Could not update .gitignore: %v", err), color.FgYellow)
	} else {
		printStatus("✓", "Added .gatecheck/ to .gitignore", color.FgGreen)
	}

	fmt.Printf("\n%s gatecheck initialization complete!\n\n", color.GreenString("✓"))
	fmt.Println("Next steps:")
	fmt.Printf("  1. Review the pipeline in %s\n", config.ProjectConfigName)
	fmt.Println("  2. Run 'gatecheck' to validate")
	return nil
}

// ensureGitignoreEntry appends entry to .gitignore unless already present.
func ensureGitignoreEntry(root, entry string) error {
	path := filepath.Join(root, ".gitignore")
	content, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	for _, line := range strings.Split(string(content), "\n") {
		if strings.TrimSpace(line) == entry {
			return nil
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	prefix := ""
	if len(content) > 0 && !strings.HasSuffix(string(content), "\n") {
		prefix = "\n"
	}
	_, err = f.WriteString(prefix + entry + "\n")
	return err
}

// printStatus prints a status line with color
func printStatus(symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Printf("%s %s\n", c.Sprint(symbol), message)
}
