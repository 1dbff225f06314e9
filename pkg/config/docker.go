package config

import (
	"net"
	"net/url"
	"os"
	"regexp"
	"sync"
)

// dockerHostAlias reaches the host machine from inside a container.
const dockerHostAlias = "host.docker.internal"

var (
	isDockerOnce   sync.Once
	isDockerResult bool

	// tcp(localhost:3306) in go-sql-driver/mysql DSNs
	mysqlTCPHostPattern = regexp.MustCompile(`@tcp\((localhost|127\.0\.0\.1)(:\d+)?\)`)
)

// IsRunningInDocker returns true if the application is running inside a Docker container.
// Detection is based on the presence of /.dockerenv. The result is cached.
func IsRunningInDocker() bool {
	isDockerOnce.Do(func() {
		_, err := os.Stat("/.dockerenv")
		isDockerResult = err == nil
	})
	return isDockerResult
}

func isLoopback(host string) bool {
	return host == "localhost" || host == "127.0.0.1"
}

// ResolveHostForDocker rewrites localhost to host.docker.internal when running
// in Docker so table sources and LLM endpoints on the host stay reachable.
func ResolveHostForDocker(host string) string {
	return resolveHost(host, IsRunningInDocker())
}

func resolveHost(host string, inDocker bool) string {
	if inDocker && isLoopback(host) {
		return dockerHostAlias
	}
	return host
}

// ResolveDSNForDocker applies ResolveHostForDocker to the host of a URL DSN
// (sqlserver://, http://) or a MySQL tcp(...) address. Other DSNs are returned
// unchanged.
func ResolveDSNForDocker(dsn string) string {
	return resolveDSN(dsn, IsRunningInDocker())
}

func resolveDSN(dsn string, inDocker bool) string {
	if !inDocker {
		return dsn
	}

	if mysqlTCPHostPattern.MatchString(dsn) {
		return mysqlTCPHostPattern.ReplaceAllString(dsn, "@tcp("+dockerHostAlias+"${2})")
	}

	u, err := url.Parse(dsn)
	if err != nil || u.Host == "" {
		return dsn
	}
	host, port := u.Hostname(), u.Port()
	if !isLoopback(host) {
		return dsn
	}
	if port != "" {
		u.Host = net.JoinHostPort(dockerHostAlias, port)
	} else {
		u.Host = dockerHostAlias
	}
	return u.String()
}
