package auth

import (
	"bytes"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

// Config describes how to reach the production host.
type Config struct {
	Hostname string
	Username string
	Port     string
	// KeyPath is an explicit private key. When empty the agent and the
	// usual ~/.ssh keys are tried.
	KeyPath   string
	UseAgent  bool
	Timeout   time.Duration
	KeepAlive time.Duration
}

// Client is an established SSH connection to the production host.
type Client struct {
	client   *ssh.Client
	hostname string
	username string
}

// Dial connects to the host described by config. Authentication tries the
// SSH agent, then the explicit key, then the default ~/.ssh keys.
func Dial(config Config) (*Client, error) {
	if config.Port == "" {
		config.Port = "22"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.KeepAlive == 0 {
		config.KeepAlive = 30 * time.Second
	}

	var authMethods []ssh.AuthMethod
	if config.UseAgent {
		if agentAuth, err := agentAuthMethod(); err == nil {
			authMethods = append(authMethods, agentAuth)
		}
	}
	if config.KeyPath != "" {
		if keyAuth, err := keyAuthMethod(config.KeyPath); err == nil {
			authMethods = append(authMethods, keyAuth)
		}
	}
	for _, keyPath := range defaultKeyPaths() {
		if config.KeyPath != "" && filepath.Clean(keyPath) == filepath.Clean(config.KeyPath) {
			continue
		}
		if _, err := os.Stat(keyPath); err == nil {
			if keyAuth, err := keyAuthMethod(keyPath); err == nil {
				authMethods = append(authMethods, keyAuth)
			}
		}
	}
	if len(authMethods) == 0 {
		return nil, fmt.Errorf("no valid authentication methods found")
	}

	sshConfig := &ssh.ClientConfig{
		User:            config.Username,
		Auth:            authMethods,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         config.Timeout,
	}

	address := net.JoinHostPort(config.Hostname, config.Port)
	client, err := ssh.Dial("tcp", address, sshConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", address, err)
	}

	go func() {
		ticker := time.NewTicker(config.KeepAlive)
		defer ticker.Stop()
		for range ticker.C {
			if _, _, err := client.SendRequest("keepalive@openssh.com", true, nil); err != nil {
				return
			}
		}
	}()

	return &Client{client: client, hostname: config.Hostname, username: config.Username}, nil
}

func defaultKeyPaths() []string {
	home := os.Getenv("HOME")
	return []string{
		filepath.Join(home, ".ssh", "id_rsa"),
		filepath.Join(home, ".ssh", "id_ed25519"),
		filepath.Join(home, ".ssh", "id_ecdsa"),
	}
}

func agentAuthMethod() (ssh.AuthMethod, error) {
	socket := os.Getenv("SSH_AUTH_SOCK")
	if socket == "" {
		return nil, fmt.Errorf("SSH_AUTH_SOCK not set")
	}
	conn, err := net.Dial("unix", socket)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SSH agent: %w", err)
	}
	return ssh.PublicKeysCallback(agent.NewClient(conn).Signers), nil
}

func keyAuthMethod(keyPath string) (ssh.AuthMethod, error) {
	key, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return ssh.PublicKeys(signer), nil
}

// Execute runs a command on the remote host and returns its output.
func (c *Client) Execute(command string) (string, string, error) {
	session, err := c.client.NewSession()
	if err != nil {
		return "", "", fmt.Errorf("failed to create session: %w", err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	err = session.Run(command)
	return stdout.String(), stderr.String(), err
}

// IsAlive reports whether the connection still answers.
func (c *Client) IsAlive() bool {
	session, err := c.client.NewSession()
	if err != nil {
		return false
	}
	defer session.Close()
	return session.Run("true") == nil
}

func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func (c *Client) Hostname() string { return c.hostname }
func (c *Client) Username() string { return c.username }
