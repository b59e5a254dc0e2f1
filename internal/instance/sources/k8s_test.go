package sources

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"
)

func TestK8sConfigMapSource(t *testing.T) {
	clientset := fake.NewSimpleClientset(
		&corev1.ConfigMap{
			ObjectMeta: metav1.ObjectMeta{
				Name:      "cluster-a",
				Namespace: "mesh",
				Labels:    map[string]string{"xds": "clusters"},
			},
			Data: map[string]string{"address": "10.0.0.1"},
		},
	)

	src := &K8s{Clientset: clientset, Namespace: "mesh", Kind: K8sKindConfigMap}
	got, err := src.Get(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, "cluster-a", got[0]["name"])
	assert.Equal(t, "mesh", got[0]["namespace"])
	data := got[0]["data"].(map[string]any)
	assert.Equal(t, "10.0.0.1", data["address"])
}

func TestK8sSecretSource(t *testing.T) {
	clientset := fake.NewSimpleClientset(
		&corev1.Secret{
			ObjectMeta: metav1.ObjectMeta{Name: "tls-cert", Namespace: "mesh"},
			Data:       map[string][]byte{"cert": []byte("PEM")},
		},
	)

	src := &K8s{Clientset: clientset, Namespace: "mesh", Kind: K8sKindSecret}
	got, err := src.Get(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)

	data := got[0]["data"].(map[string]any)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("PEM")), data["cert"])
}
