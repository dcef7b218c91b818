package profile

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/watch"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"oidcconfig/pkg/debounce"
)

// KubernetesConfig configures the ConfigMap profile source
type KubernetesConfig struct {
	// Kubeconfig path (optional, uses in-cluster config if empty)
	Kubeconfig string `yaml:"kubeconfig"`
	// Namespace to read (empty means all namespaces)
	Namespace string `yaml:"namespace"`
	// LabelSelector selects the ConfigMaps holding profiles
	LabelSelector string `yaml:"labelSelector"`
	// RetryInterval is the wait before re-establishing a failed watch
	RetryInterval time.Duration `yaml:"retryInterval"`
}

// ConfigMapSource loads profile documents from the *.yaml and *.yml keys of
// the ConfigMaps matching a label selector.
type ConfigMapSource struct {
	config   KubernetesConfig
	client   kubernetes.Interface
	selector labels.Selector
	delay    time.Duration
	logger   *slog.Logger
}

// NewConfigMapSource creates a ConfigMap source connected to the cluster
func NewConfigMapSource(config KubernetesConfig, logger *slog.Logger) (*ConfigMapSource, error) {
	var (
		k8sConfig *rest.Config
		err       error
	)
	if config.Kubeconfig != "" {
		k8sConfig, err = clientcmd.BuildConfigFromFlags("", config.Kubeconfig)
	} else {
		k8sConfig, err = rest.InClusterConfig()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes config: %w", err)
	}

	client, err := kubernetes.NewForConfig(k8sConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes client: %w", err)
	}
	return NewConfigMapSourceWithClient(client, config, logger)
}

// NewConfigMapSourceWithClient creates a ConfigMap source over client
func NewConfigMapSourceWithClient(client kubernetes.Interface, config KubernetesConfig, logger *slog.Logger) (*ConfigMapSource, error) {
	if logger == nil {
		logger = slog.Default()
	}
	selector := labels.Everything()
	if config.LabelSelector != "" {
		var err error
		selector, err = labels.Parse(config.LabelSelector)
		if err != nil {
			return nil, fmt.Errorf("invalid label selector: %w", err)
		}
	}
	if config.RetryInterval == 0 {
		config.RetryInterval = 5 * time.Second
	}

	return &ConfigMapSource{
		config:   config,
		client:   client,
		selector: selector,
		delay:    debounce.DefaultDelay,
		logger:   logger.With("component", "profile-source", "source", "kubernetes", "namespace", config.Namespace),
	}, nil
}

// WithDebounce sets how long the source waits for changes to settle
func (s *ConfigMapSource) WithDebounce(delay time.Duration) *ConfigMapSource {
	if delay > 0 {
		s.delay = delay
	}
	return s
}

// Name implements Source
func (s *ConfigMapSource) Name() string {
	return "kubernetes"
}

// Load implements Source
func (s *ConfigMapSource) Load(ctx context.Context) (*Batch, error) {
	list, err := s.client.CoreV1().ConfigMaps(s.config.Namespace).List(ctx, metav1.ListOptions{
		LabelSelector: s.selector.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list configmaps: %w", err)
	}

	items := list.Items
	sort.Slice(items, func(i, j int) bool {
		if items[i].Namespace != items[j].Namespace {
			return items[i].Namespace < items[j].Namespace
		}
		return items[i].Name < items[j].Name
	})

	batch := newBatch()
	for i := range items {
		addConfigMap(batch, &items[i])
	}

	s.logger.Debug("profiles loaded", "configmaps", len(items), "documents", len(batch.Documents), "invalid", len(batch.Invalid))
	return batch, nil
}

func addConfigMap(batch *Batch, cm *corev1.ConfigMap) {
	keys := make([]string, 0, len(cm.Data))
	for key := range cm.Data {
		if IsDocumentName(key) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	for _, key := range keys {
		batch.add(fmt.Sprintf("configmap/%s/%s/%s", cm.Namespace, cm.Name, key), []byte(cm.Data[key]))
	}
}

// Watch implements WatchableSource. A closed or failed watch is
// re-established after the retry interval.
func (s *ConfigMapSource) Watch(ctx context.Context, onChange func()) error {
	d := debounce.New(s.delay, onChange)
	defer d.Stop()

	s.logger.Info("ConfigMap watcher started", "labelSelector", s.selector.String())
	for {
		watcher, err := s.client.CoreV1().ConfigMaps(s.config.Namespace).Watch(ctx, metav1.ListOptions{
			LabelSelector: s.selector.String(),
			Watch:         true,
		})
		if err != nil {
			s.logger.Error("Failed to create configmap watcher", "error", err)
		} else {
			s.handleEvents(ctx, watcher, d)
			watcher.Stop()
		}

		select {
		case <-ctx.Done():
			s.logger.Info("ConfigMap watcher stopped")
			return nil
		case <-time.After(s.config.RetryInterval):
		}
	}
}

func (s *ConfigMapSource) handleEvents(ctx context.Context, watcher watch.Interface, d *debounce.Debouncer) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.ResultChan():
			if !ok {
				return
			}
			switch event.Type {
			case watch.Added, watch.Modified, watch.Deleted:
				if cm, ok := event.Object.(*corev1.ConfigMap); ok {
					s.logger.Debug("ConfigMap changed", "name", cm.Name, "event", event.Type)
				}
				d.Trigger()
			case watch.Error:
				s.logger.Warn("ConfigMap watch error", "status", event.Object)
				return
			}
		}
	}
}
