package cmd

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func NewCmdList() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "列出所有部署配置",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newRuntimeEnv()
			if err != nil {
				return err
			}
			defer env.Close()

			deployments := env.provider.ListDeployments()
			if len(deployments) == 0 {
				fmt.Println("没有找到部署配置。")
				return nil
			}

			keys := make([]string, 0, len(deployments))
			for k := range deployments {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "名称\t节点\t服务\t远端目录\t健康端口")
			for _, name := range keys {
				spec := deployments[name].Normalize()
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n",
					name, spec.Node, spec.Service, spec.RemoteRoot, spec.Health.Port)
			}
			return w.Flush()
		},
	}
}

func init() {
	rootCmd.AddCommand(NewCmdList())
}
