package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

type UploadOptions struct {
	Name string
}

func NewCmdUpload() *cobra.Command {
	o := &UploadOptions{}
	cmd := &cobra.Command{
		Use:   "upload <deployment>",
		Short: "只同步部署目标的应用文件,不执行部署流程",
		Long: `只同步部署目标的应用文件,不执行部署流程。
目录会递归上传并保留相对结构,远端目录幂等创建。
用法示例:
dtool upload myapp`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o.Name = args[0]
			return o.Run(cmd.Context())
		},
	}
	return cmd
}

func (o *UploadOptions) Run(ctx context.Context) error {
	env, err := newRuntimeEnv()
	if err != nil {
		return err
	}
	defer env.Close()

	spec, _, err := env.lookupDeployment(o.Name)
	if err != nil {
		return err
	}
	_, client, err := env.connectExecutor(ctx, spec)
	if err != nil {
		return err
	}
	return uploadArtifacts(ctx, client, spec, false)
}

func init() {
	rootCmd.AddCommand(NewCmdUpload())
}
