package api

// Application states understood by the control plane.
const (
	StateStarted = "STARTED"
	StateStopped = "STOPPED"
)

// App is the control plane's application record.
type App struct {
	Name             string       `json:"name"`
	Staging          Staging      `json:"staging"`
	URIs             []string     `json:"uris"`
	Instances        int          `json:"instances"`
	RunningInstances int          `json:"runningInstances,omitempty"`
	Resources        AppResources `json:"resources"`
	State            string       `json:"state"`
	Services         []string     `json:"services"`
	Version          string       `json:"version,omitempty"`
	Env              []string     `json:"env"`
	Meta             *AppMeta     `json:"meta,omitempty"`
}

// Staging selects the framework and runtime used to stage an app.
type Staging struct {
	Model string `json:"model"`
	Stack string `json:"stack,omitempty"`
}

// AppResources are the per-instance limits of an app.
type AppResources struct {
	Memory int `json:"memory"`
	Disk   int `json:"disk,omitempty"`
	FDs    int `json:"fds,omitempty"`
}

// AppMeta is bookkeeping maintained by the control plane.
type AppMeta struct {
	Version int   `json:"version,omitempty"`
	Created int64 `json:"created,omitempty"`
}

// Info describes the target cloud and, when authenticated, the user.
type Info struct {
	Name        string  `json:"name"`
	Build       any     `json:"build"`
	Support     string  `json:"support"`
	Version     any     `json:"version"`
	Description string  `json:"description"`
	User        string  `json:"user,omitempty"`
	Limits      *Limits `json:"limits,omitempty"`
	Usage       *Limits `json:"usage,omitempty"`
	AllowDebug  bool    `json:"allow_debug,omitempty"`
}

// Limits holds account quotas or current usage.
type Limits struct {
	Memory   int `json:"memory"`
	AppURIs  int `json:"app_uris"`
	Services int `json:"services"`
	Apps     int `json:"apps"`
}

// Resource fingerprints one bundle file for the resource-matching endpoint.
type Resource struct {
	Size int64  `json:"size"`
	SHA1 string `json:"sha1"`
	FN   string `json:"fn"`
}
