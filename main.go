package main

import (
	"context"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/takutakahashi/cogs/cmd"
	"github.com/takutakahashi/cogs/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:   "cogs",
	Short: "Microsoft Cognitive Services client",
	Long:  "Translate things with Microsoft Cognitive Services, from the command line or over HTTP",
}

func init() {
	rootCmd.AddCommand(cmd.TranslateCmd)
	rootCmd.AddCommand(cmd.ServeCmd)
}

func main() {
	logger.Install(logger.New(os.Stderr, false))

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}
