package cmd

import (
	"os"

	"example.com/DeployTools/cmd/version"
	"example.com/DeployTools/pkg/logger"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dtool [command] [flags]",
	Short: "dtool(Deploy Tools)是一个远程部署编排工具",
	Long: `dtool(Deploy Tools)是一个远程部署编排工具,
通过SSH连接目标主机,自动发现可用的容器工具链,
同步应用文件并执行 停止 → 重建 → 启动 → 验证 的完整部署流程。
所有主机、认证和部署信息都来自配置文件,不在命令里硬编码。`,
	Run: func(cmd *cobra.Command, args []string) {
		versionFlag, _ := cmd.Flags().GetBool("version")
		if versionFlag {
			version.PrintFullVersion()
			os.Exit(0)
		}
		cmd.Help()
		os.Exit(0)
	},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		debugFlag, _ := cmd.Flags().GetBool("debug")
		if debugFlag {
			logger.SetLogLevel("debug")
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "显示版本信息")
	rootCmd.PersistentFlags().Bool("debug", false, "开启调试模式")
}
