package smbfs

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jcmturner/gokrb5/v8/client"
	"github.com/jcmturner/gokrb5/v8/config"
	"github.com/jcmturner/gokrb5/v8/credentials"
)

// kerberosFactory caches Kerberos clients per resolved ccache path, adapted
// directly from rclone's backend/smb/kerberos.go KerberosFactory: the
// requirement to support Kerberos alongside NTLM is shared verbatim between
// the two systems.
type kerberosFactory struct {
	clientCache sync.Map // map[string]*client.Client
	errCache    sync.Map // map[string]error
	modTime     sync.Map // map[string]time.Time

	loadCCache func(string) (*credentials.CCache, error)
	newClient  func(*credentials.CCache, *config.Config, ...func(*client.Settings)) (*client.Client, error)
	loadConfig func() (*config.Config, error)
}

func newKerberosFactory() *kerberosFactory {
	return &kerberosFactory{
		loadCCache: credentials.LoadCCache,
		newClient:  client.NewFromCCache,
		loadConfig: defaultLoadKerberosConfig,
	}
}

var defaultKerberosFactory = newKerberosFactory()

func (kf *kerberosFactory) getClient(ccachePath string) (*client.Client, error) {
	resolved, err := resolveCcachePath(ccachePath)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(resolved)
	if err != nil {
		kf.errCache.Store(resolved, err)
		return nil, err
	}
	mtime := stat.ModTime()

	if oldMod, ok := kf.modTime.Load(resolved); ok {
		if oldTime, ok := oldMod.(time.Time); ok && oldTime.Equal(mtime) {
			if errVal, ok := kf.errCache.Load(resolved); ok {
				return nil, errVal.(error)
			}
			if clientVal, ok := kf.clientCache.Load(resolved); ok {
				return clientVal.(*client.Client), nil
			}
		}
	}

	cfg, err := kf.loadConfig()
	if err != nil {
		kf.errCache.Store(resolved, err)
		return nil, err
	}
	ccache, err := kf.loadCCache(resolved)
	if err != nil {
		kf.errCache.Store(resolved, err)
		return nil, err
	}
	cl, err := kf.newClient(ccache, cfg)
	if err != nil {
		kf.errCache.Store(resolved, err)
		return nil, err
	}

	kf.clientCache.Store(resolved, cl)
	kf.errCache.Delete(resolved)
	kf.modTime.Store(resolved, mtime)
	return cl, nil
}

func resolveCcachePath(ccachePath string) (string, error) {
	if ccachePath == "" {
		ccachePath = os.Getenv("KRB5CCNAME")
	}
	switch {
	case strings.Contains(ccachePath, ":"):
		parts := strings.SplitN(ccachePath, ":", 2)
		prefix, path := parts[0], parts[1]
		switch prefix {
		case "FILE":
			return path, nil
		case "DIR":
			primary, err := os.ReadFile(filepath.Join(path, "primary"))
			if err != nil {
				return "", err
			}
			return filepath.Join(path, strings.TrimSpace(string(primary))), nil
		default:
			return "", fmt.Errorf("unsupported KRB5CCNAME: %s", ccachePath)
		}
	case ccachePath == "":
		u, err := user.Current()
		if err != nil {
			return "", err
		}
		return "/tmp/krb5cc_" + u.Uid, nil
	default:
		return ccachePath, nil
	}
}

func defaultLoadKerberosConfig() (*config.Config, error) {
	cfgPath := os.Getenv("KRB5_CONFIG")
	if cfgPath == "" {
		cfgPath = "/etc/krb5.conf"
	}
	return config.Load(cfgPath)
}
