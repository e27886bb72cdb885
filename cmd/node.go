package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"example.com/DeployTools/cmd/utils"
	"example.com/DeployTools/pkg/models"
	"github.com/spf13/cobra"
)

func NewCmdNode() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "node",
		Aliases: []string{"nodes", "inv"},
		Short:   "管理部署目标节点",
		Long:    `管理部署目标节点（连接地址、认证信息、提权密码）。部署配置通过 node 字段引用这里的节点。`,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	cmd.AddCommand(NewCmdNodeList())
	cmd.AddCommand(NewCmdNodeAdd())
	cmd.AddCommand(NewCmdNodeDelete())

	return cmd
}

func NewCmdNodeAdd() *cobra.Command {
	var (
		name     string
		password string
		keyPath  string
		keyPass  string
		sudoPwd  string
		alias    []string
		tags     []string
		jump     string
	)

	cmd := &cobra.Command{
		Use:   "add [user@]address[:port]",
		Short: "添加一个部署目标节点",
		Long: `添加一个部署目标节点。
未指定认证方式时会交互式询问登录密码。
用法示例:
dtool node add root@10.0.0.2
dtool node add deploy@web01.internal:2222 -k ~/.ssh/id_ed25519 -n web01
dtool node add root@10.0.0.3 --sudo-pwd '***' --tag prod`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userName, address, port := utils.ParseAddr(args[0])
			if address == "" {
				return fmt.Errorf("地址不能为空")
			}
			if userName == "" {
				userName = utils.GetCurrentUser()
			}
			if port == 0 {
				port = 22
			}

			env, err := newRuntimeEnv()
			if err != nil {
				return err
			}
			defer env.Close()

			nodeId := name
			if nodeId == "" {
				nodeId = fmt.Sprintf("%s@%s:%d", userName, address, port)
			}
			if _, ok := env.provider.GetNode(nodeId); ok {
				return fmt.Errorf("节点 %s 已存在", nodeId)
			}

			identity := models.Identity{User: userName}
			if keyPath != "" {
				identity.KeyPath = keyPath
				identity.Passphrase = keyPass
				identity.AuthType = "key"
			} else if password != "" {
				identity.Password = password
				identity.AuthType = "password"
			} else {
				pass, err := utils.ReadPasswordFromTerminal(fmt.Sprintf("请输入用户 %s 的密码: ", userName))
				if err != nil {
					return err
				}
				identity.Password = pass
				identity.AuthType = "password"
			}

			env.provider.AddHost(nodeId, models.Host{Address: address, Port: port})
			env.provider.AddIdentity(nodeId, identity)
			env.provider.AddNode(nodeId, models.Node{
				Alias:       alias,
				Tags:        tags,
				HostRef:     nodeId,
				IdentityRef: nodeId,
				ProxyJump:   jump,
				SudoPwd:     sudoPwd,
			})

			if err := env.save(); err != nil {
				return fmt.Errorf("保存配置文件失败: %w", err)
			}
			fmt.Printf("成功添加节点: %s\n", nodeId)
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "节点名称,缺省用 user@address:port")
	cmd.Flags().StringVarP(&password, "password", "p", "", "登录密码")
	cmd.Flags().StringVarP(&keyPath, "key", "k", "", "私钥路径")
	cmd.Flags().StringVarP(&keyPass, "key-pass", "w", "", "私钥密码")
	cmd.Flags().StringVar(&sudoPwd, "sudo-pwd", "", "提权密码,为空时复用登录密码")
	cmd.Flags().StringSliceVarP(&alias, "alias", "a", nil, "节点别名")
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "节点标签,用于分组")
	cmd.Flags().StringVarP(&jump, "jump", "j", "", "跳板节点名称")

	return cmd
}

func NewCmdNodeList() *cobra.Command {
	var tag string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "列出所有节点",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newRuntimeEnv()
			if err != nil {
				return err
			}
			defer env.Close()

			var nodes map[string]models.Node
			if tag != "" {
				nodes = env.provider.GetNodesByTag(tag)
			} else {
				nodes = env.provider.ListNodes()
			}
			if len(nodes) == 0 {
				fmt.Println("没有找到节点。")
				return nil
			}

			keys := make([]string, 0, len(nodes))
			for k := range nodes {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "名称\t地址\t用户\t认证方式\t标签\t跳板")
			for _, id := range keys {
				node := nodes[id]
				host, _ := env.provider.GetHost(id)
				identity, _ := env.provider.GetIdentity(id)
				fmt.Fprintf(w, "%s\t%s:%d\t%s\t%s\t%s\t%s\n",
					id, host.Address, host.Port,
					identity.User, identity.AuthType,
					strings.Join(node.Tags, ","), node.ProxyJump)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&tag, "tag", "t", "", "只显示带指定标签的节点")
	return cmd
}

func NewCmdNodeDelete() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <node>",
		Short: "删除一个节点",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newRuntimeEnv()
			if err != nil {
				return err
			}
			defer env.Close()

			nodeId := env.provider.Find(args[0])
			if nodeId == "" {
				nodeId = args[0]
			}
			if _, ok := env.provider.GetNode(nodeId); !ok {
				return fmt.Errorf("节点 %s 不存在", nodeId)
			}
			env.provider.DeleteNode(nodeId)

			if err := env.save(); err != nil {
				return err
			}
			fmt.Printf("成功删除节点: %s\n", nodeId)
			return nil
		},
	}
}

func init() {
	rootCmd.AddCommand(NewCmdNode())
}
