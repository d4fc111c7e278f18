package transfer

import (
	"bytes"
	"context"
	stdErrors "errors"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	xerrors "CCIP-Bridge/internal/errors"
)

// CommandConfig 描述外部签名进程的调用方式。参数模板中的 {mint}、{amount}、
// {receiver}、{fee_token}、{gas_limit}、{id} 会在执行前被替换。
type CommandConfig struct {
	Name    string
	Args    []string
	WorkDir string
	Env     []string
}

// DefaultCommandConfig 返回与 starter kit 脚本一致的调用方式。
func DefaultCommandConfig() CommandConfig {
	return CommandConfig{
		Name: "yarn",
		Args: []string{"svm:token-transfer", "--", "--token-mint", "{mint}", "--token-amount", "{amount}", "--receiver", "{receiver}"},
	}
}

// CommandSubmitter 通过外部进程完成签名与广播，并从输出中提取结果。
type CommandSubmitter struct {
	cfg CommandConfig
}

// NewCommandSubmitter 构造外部进程适配器。
func NewCommandSubmitter(cfg CommandConfig) (*CommandSubmitter, error) {
	cfg.Name = strings.TrimSpace(cfg.Name)
	if cfg.Name == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "外部命令名称不能为空")
	}
	return &CommandSubmitter{cfg: cfg}, nil
}

// Submit 执行外部命令。非零退出码、无法启动以及输出无法识别都记为 DISPATCH_FAILURE。
func (c *CommandSubmitter) Submit(ctx context.Context, job Job) (*Outcome, error) {
	args := c.expand(job)
	cmd := exec.CommandContext(ctx, c.cfg.Name, args...)
	cmd.Dir = c.cfg.WorkDir
	if len(c.cfg.Env) > 0 {
		cmd.Env = append(cmd.Environ(), c.cfg.Env...)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	logs := combineOutput(stdout.String(), stderr.String())
	if runErr != nil {
		var exitErr *exec.ExitError
		if stdErrors.As(runErr, &exitErr) {
			return &Outcome{Logs: logs}, xerrors.Wrap(CodeDispatchFailure, runErr,
				"command exited with code "+strconv.Itoa(exitErr.ExitCode()),
				xerrors.WithMetadata("stderr", lastLine(stderr.String())))
		}
		return &Outcome{Logs: logs}, xerrors.Wrap(CodeDispatchFailure, runErr, "command failed to run")
	}

	outcome := parseCommandOutput(stdout.String())
	outcome.Logs = logs
	if outcome.MessageID == nil && outcome.TxSignature == "" {
		return outcome, xerrors.New(CodeDispatchFailure, "command output carried neither a message id nor a transaction signature")
	}
	return outcome, nil
}

func (c *CommandSubmitter) expand(job Job) []string {
	gasLimit := strconv.FormatUint(job.Params.GasLimit, 10)
	replacer := strings.NewReplacer(
		"{mint}", job.TokenMint,
		"{amount}", strconv.FormatUint(job.Amount, 10),
		"{receiver}", job.Intent.Receiver,
		"{fee_token}", string(job.Params.FeeToken),
		"{gas_limit}", gasLimit,
		"{id}", job.ID,
	)
	args := make([]string, len(c.cfg.Args))
	for i, arg := range c.cfg.Args {
		args[i] = replacer.Replace(arg)
	}
	return args
}

var (
	messageIDPattern = regexp.MustCompile(`(?i)message\s*id[^0-9a-fx]*(0x[0-9a-f]{64})`)
	signaturePattern = regexp.MustCompile(`(?i)(?:transaction\s+signature|tx\s*signature|signature)\s*[:=]\s*([1-9A-HJ-NP-Za-km-z]{64,90})`)
	urlPattern       = regexp.MustCompile(`https://[^\s"'<>]+`)
)

// parseCommandOutput 从脚本输出中提取消息 ID、交易签名与浏览器链接。同类信息取最后一次出现，
// CCIP 浏览器链接优先于链上浏览器链接。
func parseCommandOutput(out string) *Outcome {
	outcome := &Outcome{}
	if m := messageIDPattern.FindAllStringSubmatch(out, -1); len(m) > 0 {
		id := common.HexToHash(m[len(m)-1][1])
		outcome.MessageID = &id
	}
	if m := signaturePattern.FindAllStringSubmatch(out, -1); len(m) > 0 {
		outcome.TxSignature = m[len(m)-1][1]
	}
	var fallback string
	for _, url := range urlPattern.FindAllString(out, -1) {
		url = strings.TrimRight(url, ".,;)")
		switch {
		case strings.Contains(url, "ccip.chain.link"):
			outcome.ExplorerURL = url
		case strings.Contains(url, "explorer"):
			fallback = url
		}
	}
	if outcome.ExplorerURL == "" {
		outcome.ExplorerURL = fallback
	}
	return outcome
}

func combineOutput(stdout, stderr string) string {
	stdout = strings.TrimSpace(stdout)
	stderr = strings.TrimSpace(stderr)
	switch {
	case stderr == "":
		return stdout
	case stdout == "":
		return stderr
	default:
		return stdout + "\n--- stderr ---\n" + stderr
	}
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.LastIndexByte(s, '\n'); idx >= 0 {
		return s[idx+1:]
	}
	return s
}
