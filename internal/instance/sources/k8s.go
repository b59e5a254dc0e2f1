package sources

import (
	"context"
	"encoding/base64"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"

	"github.com/fleetxds/control-plane/internal/instance"
)

// K8sKind selects which object kind a K8s source lists.
type K8sKind string

const (
	K8sKindConfigMap K8sKind = "configmap"
	K8sKindSecret    K8sKind = "secret"
)

// K8s is a source that lists labeled ConfigMaps or Secrets from a cluster
// and turns each into one instance. Each object's labels and data become
// instance fields; Secret values are presented base64-encoded, the API wire
// form of Secret.Data.
type K8s struct {
	Clientset     kubernetes.Interface
	Namespace     string
	LabelSelector string
	Kind          K8sKind
}

// NewK8sFromInCluster builds a K8s source using in-cluster credentials, the
// only configuration a control plane running inside the mesh it serves is
// expected to have.
func NewK8sFromInCluster(namespace, labelSelector string, kind K8sKind) (*K8s, error) {
	cfg, err := rest.InClusterConfig()
	if err != nil {
		return nil, fmt.Errorf("load in-cluster config: %w", err)
	}
	clientset, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("build clientset: %w", err)
	}
	return &K8s{Clientset: clientset, Namespace: namespace, LabelSelector: labelSelector, Kind: kind}, nil
}

func (s *K8s) Get(ctx context.Context) ([]instance.Instance, error) {
	switch s.Kind {
	case K8sKindSecret:
		return s.getSecrets(ctx)
	default:
		return s.getConfigMaps(ctx)
	}
}

func (s *K8s) getConfigMaps(ctx context.Context) ([]instance.Instance, error) {
	list, err := s.Clientset.CoreV1().ConfigMaps(s.Namespace).List(ctx, metav1.ListOptions{
		LabelSelector: s.LabelSelector,
	})
	if err != nil {
		return nil, fmt.Errorf("list configmaps: %w", err)
	}
	out := make([]instance.Instance, 0, len(list.Items))
	for _, cm := range list.Items {
		out = append(out, instanceFromConfigMap(cm))
	}
	return out, nil
}

func (s *K8s) getSecrets(ctx context.Context) ([]instance.Instance, error) {
	list, err := s.Clientset.CoreV1().Secrets(s.Namespace).List(ctx, metav1.ListOptions{
		LabelSelector: s.LabelSelector,
	})
	if err != nil {
		return nil, fmt.Errorf("list secrets: %w", err)
	}
	out := make([]instance.Instance, 0, len(list.Items))
	for _, sec := range list.Items {
		out = append(out, instanceFromSecret(sec))
	}
	return out, nil
}

func instanceFromConfigMap(cm corev1.ConfigMap) instance.Instance {
	inst := instance.Instance{
		"name":      cm.Name,
		"namespace": cm.Namespace,
		"labels":    toAnyMap(cm.Labels),
	}
	data := make(map[string]any, len(cm.Data))
	for k, v := range cm.Data {
		data[k] = v
	}
	inst["data"] = data
	return inst
}

func instanceFromSecret(sec corev1.Secret) instance.Instance {
	inst := instance.Instance{
		"name":      sec.Name,
		"namespace": sec.Namespace,
		"labels":    toAnyMap(sec.Labels),
	}
	data := make(map[string]any, len(sec.Data))
	for k, v := range sec.Data {
		data[k] = base64.StdEncoding.EncodeToString(v)
	}
	inst["data"] = data
	return inst
}

func toAnyMap(m map[string]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
